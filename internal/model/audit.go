package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionCreated  AuditAction = "created"
	AuditActionResolved AuditAction = "resolved"
	AuditActionAmended  AuditAction = "amended"
)

type ActorType string

const (
	ActorTypeSystem ActorType = "system"
	ActorTypeDoctor ActorType = "doctor"
	ActorTypeNurse  ActorType = "nurse"
)

// Legal bases recorded on audit entries.
const (
	LegalBasisLegitimateInterest = "legitimate_interest"
	LegalBasisConsent            = "consent"
)

// AuditEntry is an append-only record of a flag state transition. Entries are
// never mutated or deleted by the engine's normal operations.
type AuditEntry struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	FlagID          uuid.UUID       `db:"flag_id" json:"flag_id"`
	PatientID       uuid.UUID       `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID       `db:"doctor_id" json:"doctor_id"`
	Action          AuditAction     `db:"action" json:"action"`
	PerformedBy     uuid.UUID       `db:"performed_by" json:"performed_by"`
	PerformedByType ActorType       `db:"performed_by_type" json:"performed_by_type"`
	ChangeReason    string          `db:"change_reason" json:"change_reason"`
	ReviewComments  *string         `db:"review_comments" json:"review_comments,omitempty"`
	LegalBasis      string          `db:"legal_basis" json:"legal_basis"`
	PatientConsent  bool            `db:"patient_consent" json:"patient_consent"`
	Timestamp       time.Time       `db:"timestamp" json:"timestamp"`
	Metadata        json.RawMessage `db:"metadata" json:"metadata,omitempty"`
}

// AuditFilters narrows audit listings; zero values mean no filter.
type AuditFilters struct {
	FlagID    uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Action    AuditAction
	Limit     int
}
