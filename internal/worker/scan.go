package worker

import (
	"context"
	"time"

	"github.com/medtrack/flagging-engine/internal/service/scanner"
	"github.com/medtrack/flagging-engine/pkg/logger"
)

// ScanWorker triggers the flagging pass on a fixed interval. The engine only
// exposes the pass function; this worker is one possible scheduler and any
// external cron can call the same endpoint instead.
type ScanWorker struct {
	scanner  *scanner.Service
	interval time.Duration
	logger   *logger.Logger
}

func NewScanWorker(scanner *scanner.Service, interval time.Duration, logger *logger.Logger) *ScanWorker {
	return &ScanWorker{
		scanner:  scanner,
		interval: interval,
		logger:   logger,
	}
}

func (w *ScanWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.ZL.Info().Dur("interval", w.interval).Msg("scan worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.ZL.Info().Msg("scan worker shutting down")
			return
		case <-ticker.C:
			result, err := w.scanner.RunFlaggingPass(ctx, time.Now().UTC())
			if err != nil {
				w.logger.ZL.Error().Err(err).Msg("flagging pass aborted")
				continue
			}
			if len(result.Errors) > 0 {
				w.logger.ZL.Warn().
					Int("failed", len(result.Errors)).
					Int("processed", result.ProcessedCount).
					Msg("flagging pass finished with failures")
			}
		}
	}
}
