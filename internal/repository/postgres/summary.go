package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
)

type summaryRepository struct {
	BaseRepository
}

func NewSummaryRepository(base BaseRepository) repository.SummaryRepository {
	return &summaryRepository{base}
}

// summaryRow flattens FlagSummary for sqlx scanning.
type summaryRow struct {
	PatientID          uuid.UUID  `db:"patient_id"`
	PatientName        string     `db:"patient_name"`
	TotalFlags         int        `db:"total_flags"`
	ActiveFlags        int        `db:"active_flags"`
	ResolvedFlags      int        `db:"resolved_flags"`
	LowCount           int        `db:"low_count"`
	MediumCount        int        `db:"medium_count"`
	HighCount          int        `db:"high_count"`
	RiskLevel          string     `db:"risk_level"`
	FirstFlagDate      time.Time  `db:"first_flag_date"`
	LastFlagDate       time.Time  `db:"last_flag_date"`
	LastResolutionDate *time.Time `db:"last_resolution_date"`
	LastUpdated        time.Time  `db:"last_updated"`
}

func (row *summaryRow) toModel() *model.FlagSummary {
	return &model.FlagSummary{
		PatientID:     row.PatientID,
		PatientName:   row.PatientName,
		TotalFlags:    row.TotalFlags,
		ActiveFlags:   row.ActiveFlags,
		ResolvedFlags: row.ResolvedFlags,
		FlagsBySeverity: model.SeverityCounts{
			Low:    row.LowCount,
			Medium: row.MediumCount,
			High:   row.HighCount,
		},
		RiskLevel:          model.RiskLevel(row.RiskLevel),
		FirstFlagDate:      row.FirstFlagDate,
		LastFlagDate:       row.LastFlagDate,
		LastResolutionDate: row.LastResolutionDate,
		LastUpdated:        row.LastUpdated,
	}
}

func (r *summaryRepository) Upsert(ctx context.Context, summary *model.FlagSummary) error {
	query := `
		INSERT INTO flag_summaries (
			patient_id, patient_name, total_flags, active_flags, resolved_flags,
			low_count, medium_count, high_count, risk_level,
			first_flag_date, last_flag_date, last_resolution_date, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (patient_id) DO UPDATE SET
			patient_name = EXCLUDED.patient_name,
			total_flags = EXCLUDED.total_flags,
			active_flags = EXCLUDED.active_flags,
			resolved_flags = EXCLUDED.resolved_flags,
			low_count = EXCLUDED.low_count,
			medium_count = EXCLUDED.medium_count,
			high_count = EXCLUDED.high_count,
			risk_level = EXCLUDED.risk_level,
			first_flag_date = EXCLUDED.first_flag_date,
			last_flag_date = EXCLUDED.last_flag_date,
			last_resolution_date = EXCLUDED.last_resolution_date,
			last_updated = EXCLUDED.last_updated
	`
	_, err := r.db.ExecContext(ctx, query,
		summary.PatientID,
		summary.PatientName,
		summary.TotalFlags,
		summary.ActiveFlags,
		summary.ResolvedFlags,
		summary.FlagsBySeverity.Low,
		summary.FlagsBySeverity.Medium,
		summary.FlagsBySeverity.High,
		summary.RiskLevel,
		summary.FirstFlagDate,
		summary.LastFlagDate,
		summary.LastResolutionDate,
		summary.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert flag summary: %w", err)
	}
	return nil
}

func (r *summaryRepository) Get(ctx context.Context, patientID uuid.UUID) (*model.FlagSummary, error) {
	query := `
		SELECT patient_id, patient_name, total_flags, active_flags, resolved_flags,
			   low_count, medium_count, high_count, risk_level,
			   first_flag_date, last_flag_date, last_resolution_date, last_updated
		FROM flag_summaries
		WHERE patient_id = $1
	`
	var row summaryRow
	err := r.db.GetContext(ctx, &row, query, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("flag summary", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flag summary: %w", err)
	}
	return row.toModel(), nil
}

func (r *summaryRepository) Delete(ctx context.Context, patientID uuid.UUID) error {
	query := `DELETE FROM flag_summaries WHERE patient_id = $1`

	if _, err := r.db.ExecContext(ctx, query, patientID); err != nil {
		return fmt.Errorf("failed to delete flag summary: %w", err)
	}
	return nil
}

func (r *summaryRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.FlaggedPatient, error) {
	query := `
		SELECT s.patient_id, s.patient_name, s.total_flags AS flag_count,
			   s.risk_level, s.last_flag_date
		FROM flag_summaries s
		WHERE EXISTS (
			SELECT 1 FROM flags f
			WHERE f.patient_id = s.patient_id AND f.doctor_id = $1
		)
		ORDER BY s.last_flag_date DESC
	`
	var patients []*model.FlaggedPatient
	err := r.db.SelectContext(ctx, &patients, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flagged patients: %w", err)
	}
	return patients, nil
}
