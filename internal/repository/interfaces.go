package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
)

// All repository interfaces in one file
type (
	// FlagRepository owns flag persistence. CreateActive must be atomic with
	// respect to the at-most-one-active-flag-per-(appointment, patient)
	// invariant: of two concurrent calls for the same pair exactly one
	// succeeds, the other fails with a concurrency conflict.
	FlagRepository interface {
		CreateActive(ctx context.Context, flag *model.Flag) error
		Get(ctx context.Context, id uuid.UUID) (*model.Flag, error)
		Update(ctx context.Context, flag *model.Flag) error
		// Delete removes a flag and its revisions. It exists for the
		// retention purge and for rolling back a create whose audit entry
		// could not be written; nothing user-facing deletes flags.
		Delete(ctx context.Context, id uuid.UUID) error
		HasActiveFlag(ctx context.Context, appointmentID, patientID uuid.UUID) (bool, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID, includeResolved bool) ([]*model.Flag, error)
		SaveRevision(ctx context.Context, rev *model.FlagRevision) error
		ListRevisions(ctx context.Context, flagID uuid.UUID) ([]*model.FlagRevision, error)
		DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	}

	AlertRepository interface {
		Create(ctx context.Context, alert *model.Alert) error
		Get(ctx context.Context, id uuid.UUID) (*model.Alert, error)
		Update(ctx context.Context, alert *model.Alert) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID, unreadOnly bool, limit int) ([]*model.Alert, error)
	}

	// SummaryRepository stores derived per-patient aggregates. Upsert replaces
	// the row wholesale; summaries are never partially patched.
	SummaryRepository interface {
		Upsert(ctx context.Context, summary *model.FlagSummary) error
		Get(ctx context.Context, patientID uuid.UUID) (*model.FlagSummary, error)
		Delete(ctx context.Context, patientID uuid.UUID) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.FlaggedPatient, error)
	}

	ConfigRepository interface {
		Get(ctx context.Context, doctorID uuid.UUID) (*model.FlaggingConfiguration, error)
		Create(ctx context.Context, cfg *model.FlaggingConfiguration) error
		Update(ctx context.Context, cfg *model.FlaggingConfiguration) error
	}

	// AuditRepository is append-only for the engine's lifetime; DeleteBefore
	// exists solely for the retention worker.
	AuditRepository interface {
		Create(ctx context.Context, entry *model.AuditEntry) error
		List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditEntry, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// AppointmentSource is the read contract against the external
	// appointment/notification store. The engine never writes through it.
	AppointmentSource interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		ListCandidates(ctx context.Context, status model.AppointmentStatus, before time.Time) ([]*model.Appointment, error)
	}
)
