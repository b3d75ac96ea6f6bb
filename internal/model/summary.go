package model

import (
	"time"

	"github.com/google/uuid"
)

type RiskLevel string

const (
	RiskLevelNone   RiskLevel = "none"
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// SeverityCounts breaks a patient's flags down by severity.
type SeverityCounts struct {
	Low    int `db:"low_count" json:"low"`
	Medium int `db:"medium_count" json:"medium"`
	High   int `db:"high_count" json:"high"`
}

// FlagSummary is the derived per-patient aggregate. It is always recomputed
// as a fold over the patient's current flag set, never hand-edited, and is
// deleted outright when the patient has no flags left.
type FlagSummary struct {
	PatientID          uuid.UUID      `db:"patient_id" json:"patient_id"`
	PatientName        string         `db:"patient_name" json:"patient_name"`
	TotalFlags         int            `db:"total_flags" json:"total_flags"`
	ActiveFlags        int            `db:"active_flags" json:"active_flags"`
	ResolvedFlags      int            `db:"resolved_flags" json:"resolved_flags"`
	FlagsBySeverity    SeverityCounts `json:"flags_by_severity"`
	RiskLevel          RiskLevel      `db:"risk_level" json:"risk_level"`
	FirstFlagDate      time.Time      `db:"first_flag_date" json:"first_flag_date"`
	LastFlagDate       time.Time      `db:"last_flag_date" json:"last_flag_date"`
	LastResolutionDate *time.Time     `db:"last_resolution_date" json:"last_resolution_date,omitempty"`
	LastUpdated        time.Time      `db:"last_updated" json:"last_updated"`
}

// FlaggedPatient is the per-doctor listing projection.
type FlaggedPatient struct {
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName  string     `db:"patient_name" json:"patient_name"`
	FlagCount    int        `db:"flag_count" json:"flag_count"`
	RiskLevel    RiskLevel  `db:"risk_level" json:"risk_level"`
	LastFlagDate *time.Time `db:"last_flag_date" json:"last_flag_date,omitempty"`
}
