package model

import (
	"time"

	"github.com/google/uuid"
)

type AlertType string

const (
	AlertTypePatientFlagged AlertType = "patient_flagged"
)

// Alert is an operator-facing notification created alongside a new flag.
// Resolving the flag does not dismiss the alert; the operator does that
// explicitly.
type Alert struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	DoctorID       uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	Type           AlertType    `db:"type" json:"type"`
	Severity       FlagSeverity `db:"severity" json:"severity"`
	Title          string       `db:"title" json:"title"`
	Message        string       `db:"message" json:"message"`
	PatientID      uuid.UUID    `db:"patient_id" json:"patient_id"`
	PatientName    string       `db:"patient_name" json:"patient_name"`
	AppointmentID  uuid.UUID    `db:"appointment_id" json:"appointment_id"`
	Read           bool         `db:"read" json:"read"`
	Acknowledged   bool         `db:"acknowledged" json:"acknowledged"`
	Dismissed      bool         `db:"dismissed" json:"dismissed"`
	RequiresAction bool         `db:"requires_action" json:"requires_action"`
	ActionDeadline time.Time    `db:"action_deadline" json:"action_deadline"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	ReadAt         *time.Time   `db:"read_at" json:"read_at,omitempty"`
}
