package worker

import (
	"context"
	"time"

	"github.com/medtrack/flagging-engine/internal/repository"
	"github.com/medtrack/flagging-engine/pkg/logger"
)

// RetentionWorker purges flags whose data retention expiry has passed and
// audit entries older than the audit retention horizon. This is the only
// deletion path for either; nothing user-facing deletes flags or audit rows.
type RetentionWorker struct {
	flags              repository.FlagRepository
	audits             repository.AuditRepository
	auditRetentionDays int
	interval           time.Duration
	logger             *logger.Logger
}

func NewRetentionWorker(flags repository.FlagRepository, audits repository.AuditRepository, auditRetentionDays int, interval time.Duration, logger *logger.Logger) *RetentionWorker {
	return &RetentionWorker{
		flags:              flags,
		audits:             audits,
		auditRetentionDays: auditRetentionDays,
		interval:           interval,
		logger:             logger,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *RetentionWorker) cleanup(ctx context.Context) {
	now := time.Now().UTC()

	flagsDeleted, err := w.flags.DeleteExpired(ctx, now)
	if err != nil {
		w.logger.ZL.Error().Err(err).Msg("failed to purge expired flags")
	} else if flagsDeleted > 0 {
		w.logger.ZL.Info().Int64("deleted", flagsDeleted).Msg("purged flags past retention expiry")
	}

	cutoff := now.AddDate(0, 0, -w.auditRetentionDays)
	auditsDeleted, err := w.audits.DeleteBefore(ctx, cutoff)
	if err != nil {
		w.logger.ZL.Error().Err(err).Msg("failed to purge old audit entries")
	} else if auditsDeleted > 0 {
		w.logger.ZL.Info().Int64("deleted", auditsDeleted).Time("cutoff", cutoff).Msg("purged audit entries past retention")
	}
}
