package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// FlaggingConfiguration holds the per-doctor tunables the evaluator runs
// against. One row per doctor, created lazily with defaults on first read.
type FlaggingConfiguration struct {
	DoctorID                      uuid.UUID      `db:"doctor_id" json:"doctor_id"`
	EnableAutoFlagging            bool           `db:"enable_auto_flagging" json:"enable_auto_flagging"`
	FlagAfterMissedNotifications  int            `db:"flag_after_missed_notifications" json:"flag_after_missed_notifications"`
	FlagSeverityForNoResponse     FlagSeverity   `db:"flag_severity_for_no_response" json:"flag_severity_for_no_response"`
	ResponseTimeoutHours          int            `db:"response_timeout_hours" json:"response_timeout_hours"`
	AppointmentGracePeriodMinutes int            `db:"appointment_grace_period_minutes" json:"appointment_grace_period_minutes"`
	EnableRealTimeAlerts          bool           `db:"enable_real_time_alerts" json:"enable_real_time_alerts"`
	AlertForSeverities            pq.StringArray `db:"alert_for_severities" json:"alert_for_severities"`
	FlagRetentionMonths           int            `db:"flag_retention_months" json:"flag_retention_months"`
	AutoResolveOldFlags           bool           `db:"auto_resolve_old_flags" json:"auto_resolve_old_flags"`
	CreatedAt                     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt                     time.Time      `db:"updated_at" json:"updated_at"`
}

// DefaultFlaggingConfiguration returns the documented defaults applied on
// first access for a doctor.
func DefaultFlaggingConfiguration(doctorID uuid.UUID) *FlaggingConfiguration {
	now := time.Now().UTC()
	return &FlaggingConfiguration{
		DoctorID:                      doctorID,
		EnableAutoFlagging:            true,
		FlagAfterMissedNotifications:  2,
		FlagSeverityForNoResponse:     FlagSeverityMedium,
		ResponseTimeoutHours:          2,
		AppointmentGracePeriodMinutes: 30,
		EnableRealTimeAlerts:          true,
		AlertForSeverities:            pq.StringArray{string(FlagSeverityMedium), string(FlagSeverityHigh)},
		FlagRetentionMonths:           24,
		AutoResolveOldFlags:           false,
		CreatedAt:                     now,
		UpdatedAt:                     now,
	}
}

// AlertsFor reports whether real-time alerts are enabled for the severity.
func (c *FlaggingConfiguration) AlertsFor(severity FlagSeverity) bool {
	if !c.EnableRealTimeAlerts {
		return false
	}
	for _, s := range c.AlertForSeverities {
		if s == string(severity) {
			return true
		}
	}
	return false
}

type UpdateFlaggingConfigRequest struct {
	EnableAutoFlagging            *bool    `json:"enable_auto_flagging"`
	FlagAfterMissedNotifications  *int     `json:"flag_after_missed_notifications" validate:"omitempty,min=1,max=10"`
	FlagSeverityForNoResponse     *string  `json:"flag_severity_for_no_response" validate:"omitempty,oneof=low medium high"`
	ResponseTimeoutHours          *int     `json:"response_timeout_hours" validate:"omitempty,min=1,max=168"`
	AppointmentGracePeriodMinutes *int     `json:"appointment_grace_period_minutes" validate:"omitempty,min=0,max=1440"`
	EnableRealTimeAlerts          *bool    `json:"enable_real_time_alerts"`
	AlertForSeverities            []string `json:"alert_for_severities" validate:"omitempty,dive,oneof=low medium high"`
	FlagRetentionMonths           *int     `json:"flag_retention_months" validate:"omitempty,min=1,max=120"`
	AutoResolveOldFlags           *bool    `json:"auto_resolve_old_flags"`
}
