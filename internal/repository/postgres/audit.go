package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditEntry) (err error) {
	done := r.track("audit_create")
	defer func() { done(err) }()

	query := `
		INSERT INTO audit_entries (
			id, flag_id, patient_id, doctor_id, action, performed_by,
			performed_by_type, change_reason, review_comments, legal_basis,
			patient_consent, timestamp, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.FlagID,
		entry.PatientID,
		entry.DoctorID,
		entry.Action,
		entry.PerformedBy,
		entry.PerformedByType,
		entry.ChangeReason,
		entry.ReviewComments,
		entry.LegalBasis,
		entry.PatientConsent,
		entry.Timestamp,
		entry.Metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filters *model.AuditFilters) (_ []*model.AuditEntry, err error) {
	done := r.track("audit_list")
	defer func() { done(err) }()

	query := `
		SELECT id, flag_id, patient_id, doctor_id, action, performed_by,
			   performed_by_type, change_reason, review_comments, legal_basis,
			   patient_consent, timestamp, metadata
		FROM audit_entries
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters.FlagID != uuid.Nil {
		query += fmt.Sprintf(" AND flag_id = $%d", argCount)
		args = append(args, filters.FlagID)
		argCount++
	}
	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}
	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
		args = append(args, filters.DoctorID)
		argCount++
	}
	if filters.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argCount)
		args = append(args, filters.Action)
		argCount++
	}

	query += " ORDER BY timestamp DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filters.Limit)
	}

	var entries []*model.AuditEntry
	err = r.db.SelectContext(ctx, &entries, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

func (r *auditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (_ int64, err error) {
	done := r.track("audit_delete_before")
	defer func() { done(err) }()

	query := `DELETE FROM audit_entries WHERE timestamp < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit entries: %w", err)
	}
	return result.RowsAffected()
}
