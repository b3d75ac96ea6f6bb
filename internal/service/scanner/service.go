package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
	"github.com/medtrack/flagging-engine/internal/service/alert"
	"github.com/medtrack/flagging-engine/internal/service/evaluator"
	"github.com/medtrack/flagging-engine/internal/service/flag"
	"github.com/medtrack/flagging-engine/internal/service/flagconfig"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
	"github.com/medtrack/flagging-engine/pkg/metrics"
)

const (
	// candidateCutoff is the fixed query-window cutoff: only appointments at
	// least this far in the past are pulled, independently of any per-owner
	// response timeout.
	candidateCutoff = 2 * time.Hour

	// appointmentTimeout bounds one appointment's evaluate-and-create unit of
	// work; overrunning it fails that appointment, not the pass.
	appointmentTimeout = 10 * time.Second
)

// Service drives the periodic flagging pipeline: pull candidates from the
// external store, evaluate each, create flags and alerts for the positives.
type Service struct {
	appointments repository.AppointmentSource
	flagSvc      *flag.Service
	alertSvc     *alert.Service
	configSvc    *flagconfig.Service
	metrics      *metrics.Metrics
}

// NewService builds the orchestrator. m may be nil (tests).
func NewService(appointments repository.AppointmentSource, flagSvc *flag.Service, alertSvc *alert.Service, configSvc *flagconfig.Service, m *metrics.Metrics) *Service {
	return &Service{
		appointments: appointments,
		flagSvc:      flagSvc,
		alertSvc:     alertSvc,
		configSvc:    configSvc,
		metrics:      m,
	}
}

// RunFlaggingPass evaluates every scheduled appointment older than the cutoff.
// Each appointment is an isolated unit of work: its failure is collected into
// the result and the pass moves on. Only a store failure at the candidate
// query aborts the whole pass.
func (s *Service) RunFlaggingPass(ctx context.Context, now time.Time) (*model.ScanResult, error) {
	if s.metrics != nil {
		s.metrics.ScanPassesTotal.Inc()
		timer := prometheus.NewTimer(s.metrics.ScanDuration)
		defer timer.ObserveDuration()
	}

	candidates, err := s.appointments.ListCandidates(ctx, model.AppointmentStatusScheduled, now.Add(-candidateCutoff))
	if err != nil {
		if s.metrics != nil {
			s.metrics.ScanPassFailures.Inc()
		}
		return nil, fmt.Errorf("failed to query candidate appointments: %w", err)
	}

	result := &model.ScanResult{Errors: []string{}}
	for _, apt := range candidates {
		result.ProcessedCount++
		if s.metrics != nil {
			s.metrics.AppointmentsProcessed.Inc()
		}

		created, err := s.processAppointment(ctx, apt, now)
		if err != nil {
			if s.metrics != nil {
				s.metrics.ScanErrors.Inc()
			}
			result.Errors = append(result.Errors, fmt.Sprintf("appointment %s: %v", apt.ID, err))
			log.Warn().Err(err).Str("appointment_id", apt.ID.String()).Msg("appointment failed during flagging pass")
			continue
		}
		if created {
			result.NewFlagsCount++
		}
	}

	log.Info().
		Int("processed", result.ProcessedCount).
		Int("new_flags", result.NewFlagsCount).
		Int("errors", len(result.Errors)).
		Msg("flagging pass finished")
	return result, nil
}

// processAppointment runs one appointment's evaluate-and-create sequence
// under its own deadline. A concurrency conflict on the insert means another
// pass already flagged the pair; that is a clean no-op, not an error.
func (s *Service) processAppointment(ctx context.Context, apt *model.Appointment, now time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, appointmentTimeout)
	defer cancel()

	cfg, err := s.configSvc.GetOrCreate(ctx, apt.DoctorID)
	if err != nil {
		return false, err
	}

	hasActive, err := s.flagSvc.HasActiveFlag(ctx, apt.ID, apt.PatientID)
	if err != nil {
		return false, err
	}

	decision := evaluator.Evaluate(apt, cfg, hasActive, now)
	if !decision.ShouldFlag {
		return false, nil
	}

	newFlag, err := s.flagSvc.CreateFlag(ctx, flag.CreateParams{
		Appointment: apt,
		Reason:      decision.Reason,
		CreatedBy:   flag.SystemActor,
		ActorType:   model.ActorTypeSystem,
	}, cfg)
	if apperrors.IsCode(err, apperrors.ErrConcurrencyConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := s.alertSvc.CreateAlert(ctx, newFlag, apt, cfg); err != nil {
		return false, fmt.Errorf("flag created but alert creation failed: %w", err)
	}
	return true, nil
}
