package flag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
	"github.com/medtrack/flagging-engine/internal/service/audit"
	"github.com/medtrack/flagging-engine/internal/service/compliance"
	"github.com/medtrack/flagging-engine/internal/service/summary"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
	"github.com/medtrack/flagging-engine/pkg/metrics"
)

// SystemActor marks transitions performed by the engine rather than a person.
var SystemActor = uuid.Nil

// Service is the flag lifecycle manager. It is the only component that
// creates or mutates flags; every mutation triggers a summary recompute and
// an audit entry.
type Service struct {
	flags      repository.FlagRepository
	summarySvc *summary.Service
	auditor    *audit.Service
	checker    *compliance.Service
	metrics    *metrics.Metrics
}

// NewService builds the lifecycle manager. m may be nil (tests).
func NewService(flags repository.FlagRepository, summarySvc *summary.Service, auditor *audit.Service, checker *compliance.Service, m *metrics.Metrics) *Service {
	return &Service{
		flags:      flags,
		summarySvc: summarySvc,
		auditor:    auditor,
		checker:    checker,
		metrics:    m,
	}
}

// CreateParams carries everything CreateFlag needs beyond the owner config.
// Zero Severity defaults to the config's no-response severity; zero CreatedBy
// means the system created the flag.
type CreateParams struct {
	Appointment *model.Appointment
	Reason      model.FlagReason
	Severity    model.FlagSeverity
	Description string
	CreatedBy   uuid.UUID
	ActorType   model.ActorType
}

// CreateFlag runs the compliance gate, then atomically creates the active
// flag. The insert enforces at-most-one-active-flag per (appointment,
// patient); losing the race surfaces as a concurrency conflict and leaves no
// side effects. Success triggers the summary recompute and the audit entry.
func (s *Service) CreateFlag(ctx context.Context, params CreateParams, cfg *model.FlaggingConfiguration) (*model.Flag, error) {
	apt := params.Appointment
	if apt == nil {
		return nil, apperrors.Validation("appointment is required", nil)
	}
	if params.Reason == "" {
		return nil, apperrors.Validation("flag reason is required", nil)
	}

	check, err := s.checker.ValidateCompliance(ctx, apt.PatientID, apt.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("compliance check failed: %w", err)
	}
	if !check.Compliant {
		return nil, apperrors.GDPRCompliance(strings.Join(check.Errors, "; "))
	}

	severity := params.Severity
	if severity == "" {
		severity = cfg.FlagSeverityForNoResponse
	}

	description := params.Description
	if description == "" {
		description = fmt.Sprintf("Patient did not respond to %d reminder notification(s) for the appointment on %s",
			apt.Notifications.SentCount(), apt.DateTime.Format(time.RFC3339))
	}

	actorType := params.ActorType
	if actorType == "" {
		actorType = model.ActorTypeSystem
	}

	now := time.Now().UTC()
	flag := &model.Flag{
		ID:                   uuid.New(),
		PatientID:            apt.PatientID,
		PatientName:          apt.PatientName,
		PatientEmail:         apt.PatientEmail,
		DoctorID:             apt.DoctorID,
		Reason:               params.Reason,
		Severity:             severity,
		Status:               model.FlagStatusActive,
		Description:          description,
		AppointmentID:        apt.ID,
		AppointmentDateTime:  apt.DateTime,
		NotificationsSent:    apt.Notifications.SentCount(),
		LastNotificationSent: apt.Notifications.LastNotificationTime(),
		ResponseDeadline:     now.Add(time.Duration(cfg.ResponseTimeoutHours) * time.Hour),
		DataRetentionExpiry:  now.AddDate(0, cfg.FlagRetentionMonths, 0),
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.flags.CreateActive(ctx, flag); err != nil {
		return nil, err
	}

	if err := s.summarySvc.Recompute(ctx, flag.PatientID); err != nil {
		s.rollbackCreate(ctx, flag)
		return nil, fmt.Errorf("flag created but summary recompute failed: %w", err)
	}

	if err := s.auditor.Record(ctx, flag, model.AuditActionCreated, params.CreatedBy, actorType,
		string(params.Reason), &audit.RecordOptions{
			LegalBasis: check.LegalBasis,
			Metadata: map[string]interface{}{
				"appointment_id":     flag.AppointmentID,
				"notifications_sent": flag.NotificationsSent,
			},
		}); err != nil {
		s.rollbackCreate(ctx, flag)
		return nil, fmt.Errorf("flag created but audit record failed: %w", err)
	}

	if s.metrics != nil {
		s.metrics.FlagsCreated.WithLabelValues(string(flag.Severity)).Inc()
	}
	return flag, nil
}

// rollbackCreate undoes a create whose follow-up writes failed. A flag that
// survives without an audit entry would never be re-processed, so it is
// deleted and the summary recomputed without it. Best effort: failures are
// logged and the original error still reaches the caller.
func (s *Service) rollbackCreate(ctx context.Context, flag *model.Flag) {
	if err := s.flags.Delete(ctx, flag.ID); err != nil {
		log.Error().Err(err).
			Str("flag_id", flag.ID.String()).
			Msg("failed to roll back flag create")
		return
	}
	if err := s.summarySvc.Recompute(ctx, flag.PatientID); err != nil {
		log.Error().Err(err).
			Str("patient_id", flag.PatientID.String()).
			Msg("failed to recompute summary after flag rollback")
	}
}

// ResolveFlag marks an active flag resolved. Resolving a resolved flag is an
// explicit error so stale clients find out.
func (s *Service) ResolveFlag(ctx context.Context, flagID uuid.UUID, notes string, resolvedBy uuid.UUID) (*model.Flag, error) {
	flag, err := s.flags.Get(ctx, flagID)
	if err != nil {
		return nil, err
	}

	if flag.Status == model.FlagStatusResolved {
		return nil, apperrors.AlreadyResolved(flagID.String())
	}

	now := time.Now().UTC()
	flag.Status = model.FlagStatusResolved
	flag.ResolvedAt = &now
	flag.ResolvedBy = &resolvedBy
	flag.ResolutionNotes = &notes
	flag.UpdatedAt = now

	if err := s.flags.Update(ctx, flag); err != nil {
		return nil, err
	}

	if err := s.summarySvc.Recompute(ctx, flag.PatientID); err != nil {
		return nil, fmt.Errorf("flag resolved but summary recompute failed: %w", err)
	}

	if err := s.auditor.Record(ctx, flag, model.AuditActionResolved, resolvedBy, model.ActorTypeDoctor,
		"flag resolved by operator", &audit.RecordOptions{ReviewComments: notes}); err != nil {
		return nil, fmt.Errorf("flag resolved but audit record failed: %w", err)
	}

	if s.metrics != nil {
		s.metrics.FlagsResolved.Inc()
	}
	return flag, nil
}

// AmendmentParams holds the whitelisted changes an amendment may apply.
type AmendmentParams struct {
	Severity        *model.FlagSeverity
	Description     *string
	ResolutionNotes *string
	ChangeReason    string
	AmendedBy       uuid.UUID
	ActorType       model.ActorType
}

// ApplyAmendment snapshots the flag's current state as an immutable revision,
// applies the field diff, bumps the version and audits the change with a
// reference to the prior version. History is never overwritten in place.
func (s *Service) ApplyAmendment(ctx context.Context, flagID uuid.UUID, params AmendmentParams) (*model.Flag, error) {
	if params.ChangeReason == "" {
		return nil, apperrors.Validation("change reason is required", nil)
	}

	flag, err := s.flags.Get(ctx, flagID)
	if err != nil {
		return nil, err
	}

	snapshot, err := json.Marshal(flag)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot flag: %w", err)
	}

	now := time.Now().UTC()
	rev := &model.FlagRevision{
		ID:        uuid.New(),
		FlagID:    flag.ID,
		Version:   flag.Version,
		Snapshot:  snapshot,
		AmendedBy: params.AmendedBy,
		CreatedAt: now,
	}
	if err := s.flags.SaveRevision(ctx, rev); err != nil {
		return nil, fmt.Errorf("failed to save flag revision: %w", err)
	}

	priorVersion := flag.Version
	if params.Severity != nil {
		flag.Severity = *params.Severity
	}
	if params.Description != nil {
		flag.Description = *params.Description
	}
	if params.ResolutionNotes != nil {
		flag.ResolutionNotes = params.ResolutionNotes
	}
	flag.Version++
	flag.UpdatedAt = now

	if err := s.flags.Update(ctx, flag); err != nil {
		return nil, err
	}

	if err := s.summarySvc.Recompute(ctx, flag.PatientID); err != nil {
		return nil, fmt.Errorf("flag amended but summary recompute failed: %w", err)
	}

	actorType := params.ActorType
	if actorType == "" {
		actorType = model.ActorTypeDoctor
	}
	if err := s.auditor.Record(ctx, flag, model.AuditActionAmended, params.AmendedBy, actorType,
		params.ChangeReason, &audit.RecordOptions{
			Metadata: map[string]interface{}{
				"prior_version": priorVersion,
				"new_version":   flag.Version,
			},
		}); err != nil {
		return nil, fmt.Errorf("flag amended but audit record failed: %w", err)
	}

	if s.metrics != nil {
		s.metrics.FlagsAmended.Inc()
	}
	return flag, nil
}

// GetFlag loads one flag by id.
func (s *Service) GetFlag(ctx context.Context, flagID uuid.UUID) (*model.Flag, error) {
	return s.flags.Get(ctx, flagID)
}

// GetPatientFlags lists a patient's flags newest-first.
func (s *Service) GetPatientFlags(ctx context.Context, patientID uuid.UUID, includeResolved bool) ([]*model.Flag, error) {
	return s.flags.ListByPatient(ctx, patientID, includeResolved)
}

// HasActiveFlag reports whether an active flag exists for the pair.
func (s *Service) HasActiveFlag(ctx context.Context, appointmentID, patientID uuid.UUID) (bool, error) {
	return s.flags.HasActiveFlag(ctx, appointmentID, patientID)
}

// GetRevisions lists a flag's amendment history oldest-first.
func (s *Service) GetRevisions(ctx context.Context, flagID uuid.UUID) ([]*model.FlagRevision, error) {
	return s.flags.ListRevisions(ctx, flagID)
}
