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

type alertRepository struct {
	BaseRepository
}

func NewAlertRepository(base BaseRepository) repository.AlertRepository {
	return &alertRepository{base}
}

const alertColumns = `
	id, doctor_id, type, severity, title, message, patient_id, patient_name,
	appointment_id, read, acknowledged, dismissed, requires_action,
	action_deadline, created_at, read_at
`

func (r *alertRepository) Create(ctx context.Context, alert *model.Alert) error {
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		alert.ID,
		alert.DoctorID,
		alert.Type,
		alert.Severity,
		alert.Title,
		alert.Message,
		alert.PatientID,
		alert.PatientName,
		alert.AppointmentID,
		alert.Read,
		alert.Acknowledged,
		alert.Dismissed,
		alert.RequiresAction,
		alert.ActionDeadline,
		alert.CreatedAt,
		alert.ReadAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (r *alertRepository) Get(ctx context.Context, id uuid.UUID) (*model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

	var alert model.Alert
	err := r.db.GetContext(ctx, &alert, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("alert", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return &alert, nil
}

func (r *alertRepository) Update(ctx context.Context, alert *model.Alert) error {
	query := `
		UPDATE alerts
		SET read = $1, acknowledged = $2, dismissed = $3, read_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		alert.Read, alert.Acknowledged, alert.Dismissed, alert.ReadAt, alert.ID)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("alert", nil)
	}
	return nil
}

func (r *alertRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, unreadOnly bool, limit int) ([]*model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE doctor_id = $1 AND dismissed = false`
	if unreadOnly {
		query += ` AND read = false`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	var alerts []*model.Alert
	err := r.db.SelectContext(ctx, &alerts, query, doctorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}
