package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type FlagStatus string

const (
	FlagStatusActive   FlagStatus = "active"
	FlagStatusResolved FlagStatus = "resolved"
)

type FlagReason string

const (
	FlagReasonNoResponse FlagReason = "no_response_to_notifications"
	// FlagReasonMultipleNoShows is defined for the no-show pathway but is not
	// produced by the current evaluation rules.
	FlagReasonMultipleNoShows FlagReason = "multiple_no_shows"
)

type FlagSeverity string

const (
	FlagSeverityLow    FlagSeverity = "low"
	FlagSeverityMedium FlagSeverity = "medium"
	FlagSeverityHigh   FlagSeverity = "high"
)

// Flag records one instance of a patient failing to respond to appointment
// reminders. At most one active flag may exist per (appointment, patient).
type Flag struct {
	ID                   uuid.UUID    `db:"id" json:"id"`
	PatientID            uuid.UUID    `db:"patient_id" json:"patient_id"`
	PatientName          string       `db:"patient_name" json:"patient_name"`
	PatientEmail         *string      `db:"patient_email" json:"patient_email,omitempty"`
	DoctorID             uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	Reason               FlagReason   `db:"reason" json:"reason"`
	Severity             FlagSeverity `db:"severity" json:"severity"`
	Status               FlagStatus   `db:"status" json:"status"`
	Description          string       `db:"description" json:"description"`
	AppointmentID        uuid.UUID    `db:"appointment_id" json:"appointment_id"`
	AppointmentDateTime  time.Time    `db:"appointment_date_time" json:"appointment_date_time"`
	NotificationsSent    int          `db:"notifications_sent" json:"notifications_sent"`
	LastNotificationSent *time.Time   `db:"last_notification_sent" json:"last_notification_sent,omitempty"`
	ResponseDeadline     time.Time    `db:"response_deadline" json:"response_deadline"`
	DataRetentionExpiry  time.Time    `db:"data_retention_expiry" json:"data_retention_expiry"`
	Version              int          `db:"version" json:"version"`
	CreatedAt            time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time    `db:"updated_at" json:"updated_at"`
	ResolvedAt           *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy           *uuid.UUID   `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolutionNotes      *string      `db:"resolution_notes" json:"resolution_notes,omitempty"`
}

// FlagRevision is an immutable snapshot of a flag taken before an amendment.
type FlagRevision struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	FlagID    uuid.UUID       `db:"flag_id" json:"flag_id"`
	Version   int             `db:"version" json:"version"`
	Snapshot  json.RawMessage `db:"snapshot" json:"snapshot"`
	AmendedBy uuid.UUID       `db:"amended_by" json:"amended_by"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

type CreateFlagRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	Severity      string `json:"severity" validate:"omitempty,oneof=low medium high"`
	Description   string `json:"description" validate:"max=2000"`
	CreatedBy     string `json:"created_by" validate:"required,uuid"`
}

type ResolveFlagRequest struct {
	ResolutionNotes string `json:"resolution_notes" validate:"required,max=2000"`
	ResolvedBy      string `json:"resolved_by" validate:"required,uuid"`
}

// AmendFlagRequest carries the whitelisted fields an amendment may change.
type AmendFlagRequest struct {
	Severity        *string `json:"severity" validate:"omitempty,oneof=low medium high"`
	Description     *string `json:"description" validate:"omitempty,max=2000"`
	ResolutionNotes *string `json:"resolution_notes" validate:"omitempty,max=2000"`
	ChangeReason    string  `json:"change_reason" validate:"required,max=1000"`
	AmendedBy       string  `json:"amended_by" validate:"required,uuid"`
}
