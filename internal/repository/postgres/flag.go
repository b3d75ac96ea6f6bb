package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
)

// The flags table carries a partial unique index on
// (appointment_id, patient_id) WHERE status = 'active'; the insert below
// relies on it to enforce the single-active-flag invariant under races.
type flagRepository struct {
	BaseRepository
}

func NewFlagRepository(base BaseRepository) repository.FlagRepository {
	return &flagRepository{base}
}

const flagColumns = `
	id, patient_id, patient_name, patient_email, doctor_id, reason, severity,
	status, description, appointment_id, appointment_date_time,
	notifications_sent, last_notification_sent, response_deadline,
	data_retention_expiry, version, created_at, updated_at,
	resolved_at, resolved_by, resolution_notes
`

func (r *flagRepository) CreateActive(ctx context.Context, flag *model.Flag) (err error) {
	done := r.track("flag_create")
	defer func() { done(err) }()

	query := `
		INSERT INTO flags (` + flagColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err = r.db.ExecContext(ctx, query,
		flag.ID,
		flag.PatientID,
		flag.PatientName,
		flag.PatientEmail,
		flag.DoctorID,
		flag.Reason,
		flag.Severity,
		flag.Status,
		flag.Description,
		flag.AppointmentID,
		flag.AppointmentDateTime,
		flag.NotificationsSent,
		flag.LastNotificationSent,
		flag.ResponseDeadline,
		flag.DataRetentionExpiry,
		flag.Version,
		flag.CreatedAt,
		flag.UpdatedAt,
		flag.ResolvedAt,
		flag.ResolvedBy,
		flag.ResolutionNotes,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.ConcurrencyConflict(
				fmt.Sprintf("active flag already exists for appointment %s patient %s",
					flag.AppointmentID, flag.PatientID), err)
		}
		return fmt.Errorf("failed to create flag: %w", err)
	}
	return nil
}

func (r *flagRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.Flag, err error) {
	done := r.track("flag_get")
	defer func() { done(err) }()

	query := `SELECT ` + flagColumns + ` FROM flags WHERE id = $1`

	var flag model.Flag
	err = r.db.GetContext(ctx, &flag, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("flag", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flag: %w", err)
	}
	return &flag, nil
}

func (r *flagRepository) Update(ctx context.Context, flag *model.Flag) (err error) {
	done := r.track("flag_update")
	defer func() { done(err) }()

	query := `
		UPDATE flags
		SET severity = $1, status = $2, description = $3, version = $4,
			updated_at = $5, resolved_at = $6, resolved_by = $7, resolution_notes = $8
		WHERE id = $9
	`
	result, err := r.db.ExecContext(ctx, query,
		flag.Severity,
		flag.Status,
		flag.Description,
		flag.Version,
		flag.UpdatedAt,
		flag.ResolvedAt,
		flag.ResolvedBy,
		flag.ResolutionNotes,
		flag.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update flag: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("flag", nil)
	}
	return nil
}

// Delete removes a flag together with its revisions in one transaction so a
// rollback or purge never leaves orphaned history rows.
func (r *flagRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	done := r.track("flag_delete")
	defer func() { done(err) }()

	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM flag_revisions WHERE flag_id = $1`, id); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM flags WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperrors.NotFound("flag", nil)
		}
		return nil
	})
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete flag: %w", err)
	}
	return nil
}

func (r *flagRepository) HasActiveFlag(ctx context.Context, appointmentID, patientID uuid.UUID) (_ bool, err error) {
	done := r.track("flag_has_active")
	defer func() { done(err) }()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM flags
			WHERE appointment_id = $1 AND patient_id = $2 AND status = 'active'
		)
	`
	var exists bool
	err = r.db.GetContext(ctx, &exists, query, appointmentID, patientID)
	if err != nil {
		return false, fmt.Errorf("failed to check active flag: %w", err)
	}
	return exists, nil
}

func (r *flagRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, includeResolved bool) (_ []*model.Flag, err error) {
	done := r.track("flag_list_by_patient")
	defer func() { done(err) }()

	query := `SELECT ` + flagColumns + ` FROM flags WHERE patient_id = $1`
	if !includeResolved {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY created_at DESC`

	var flags []*model.Flag
	err = r.db.SelectContext(ctx, &flags, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	return flags, nil
}

func (r *flagRepository) SaveRevision(ctx context.Context, rev *model.FlagRevision) (err error) {
	done := r.track("flag_revision_save")
	defer func() { done(err) }()

	query := `
		INSERT INTO flag_revisions (id, flag_id, version, snapshot, amended_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.ExecContext(ctx, query,
		rev.ID, rev.FlagID, rev.Version, rev.Snapshot, rev.AmendedBy, rev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save flag revision: %w", err)
	}
	return nil
}

func (r *flagRepository) ListRevisions(ctx context.Context, flagID uuid.UUID) (_ []*model.FlagRevision, err error) {
	done := r.track("flag_revision_list")
	defer func() { done(err) }()

	query := `
		SELECT id, flag_id, version, snapshot, amended_by, created_at
		FROM flag_revisions
		WHERE flag_id = $1
		ORDER BY version ASC
	`
	var revs []*model.FlagRevision
	err = r.db.SelectContext(ctx, &revs, query, flagID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flag revisions: %w", err)
	}
	return revs, nil
}

func (r *flagRepository) DeleteExpired(ctx context.Context, before time.Time) (_ int64, err error) {
	done := r.track("flag_delete_expired")
	defer func() { done(err) }()

	var deleted int64
	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM flag_revisions
			 WHERE flag_id IN (SELECT id FROM flags WHERE data_retention_expiry < $1)`, before)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM flags WHERE data_retention_expiry < $1`, before)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired flags: %w", err)
	}
	return deleted, nil
}
