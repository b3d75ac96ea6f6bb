package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
)

type configRepository struct {
	BaseRepository
}

func NewConfigRepository(base BaseRepository) repository.ConfigRepository {
	return &configRepository{base}
}

const configColumns = `
	doctor_id, enable_auto_flagging, flag_after_missed_notifications,
	flag_severity_for_no_response, response_timeout_hours,
	appointment_grace_period_minutes, enable_real_time_alerts,
	alert_for_severities, flag_retention_months, auto_resolve_old_flags,
	created_at, updated_at
`

func (r *configRepository) Get(ctx context.Context, doctorID uuid.UUID) (*model.FlaggingConfiguration, error) {
	query := `SELECT ` + configColumns + ` FROM flagging_configurations WHERE doctor_id = $1`

	var cfg model.FlaggingConfiguration
	err := r.db.GetContext(ctx, &cfg, query, doctorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("flagging configuration", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flagging configuration: %w", err)
	}
	return &cfg, nil
}

func (r *configRepository) Create(ctx context.Context, cfg *model.FlaggingConfiguration) error {
	query := `
		INSERT INTO flagging_configurations (` + configColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (doctor_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		cfg.DoctorID,
		cfg.EnableAutoFlagging,
		cfg.FlagAfterMissedNotifications,
		cfg.FlagSeverityForNoResponse,
		cfg.ResponseTimeoutHours,
		cfg.AppointmentGracePeriodMinutes,
		cfg.EnableRealTimeAlerts,
		cfg.AlertForSeverities,
		cfg.FlagRetentionMonths,
		cfg.AutoResolveOldFlags,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create flagging configuration: %w", err)
	}
	return nil
}

func (r *configRepository) Update(ctx context.Context, cfg *model.FlaggingConfiguration) error {
	query := `
		UPDATE flagging_configurations
		SET enable_auto_flagging = $1, flag_after_missed_notifications = $2,
			flag_severity_for_no_response = $3, response_timeout_hours = $4,
			appointment_grace_period_minutes = $5, enable_real_time_alerts = $6,
			alert_for_severities = $7, flag_retention_months = $8,
			auto_resolve_old_flags = $9, updated_at = $10
		WHERE doctor_id = $11
	`
	result, err := r.db.ExecContext(ctx, query,
		cfg.EnableAutoFlagging,
		cfg.FlagAfterMissedNotifications,
		cfg.FlagSeverityForNoResponse,
		cfg.ResponseTimeoutHours,
		cfg.AppointmentGracePeriodMinutes,
		cfg.EnableRealTimeAlerts,
		cfg.AlertForSeverities,
		cfg.FlagRetentionMonths,
		cfg.AutoResolveOldFlags,
		cfg.UpdatedAt,
		cfg.DoctorID,
	)
	if err != nil {
		return fmt.Errorf("failed to update flagging configuration: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("flagging configuration", nil)
	}
	return nil
}
