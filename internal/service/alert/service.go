package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
	"github.com/medtrack/flagging-engine/pkg/messaging"
)

const (
	actionWindow    = 24 * time.Hour
	maxAlertsPage   = 50
	publishChannel  = "alerts"
	appointmentTime = "Monday, 2 January 2006 at 15:04"
)

// Service creates and manages operator alerts. Alerts live independently of
// their flag after creation: resolving the flag does not read, acknowledge or
// dismiss the alert.
type Service struct {
	repo   repository.AlertRepository
	broker messaging.Broker
}

// NewService builds the dispatcher. broker may be nil; real-time publishing
// is then skipped.
func NewService(repo repository.AlertRepository, broker messaging.Broker) *Service {
	return &Service{repo: repo, broker: broker}
}

// CreateAlert raises the operator notification for a newly created flag and,
// when the owner's configuration asks for it, publishes an alert.created
// event for real-time subscribers. Publish failures are logged and dropped.
func (s *Service) CreateAlert(ctx context.Context, flag *model.Flag, apt *model.Appointment, cfg *model.FlaggingConfiguration) (*model.Alert, error) {
	now := time.Now().UTC()
	alert := &model.Alert{
		ID:       uuid.New(),
		DoctorID: flag.DoctorID,
		Type:     model.AlertTypePatientFlagged,
		Severity: flag.Severity,
		Title:    fmt.Sprintf("Patient %s did not respond to reminders", flag.PatientName),
		Message: fmt.Sprintf("%s has not responded to %d reminder(s) for the appointment on %s.",
			flag.PatientName, flag.NotificationsSent, apt.DateTime.Format(appointmentTime)),
		PatientID:      flag.PatientID,
		PatientName:    flag.PatientName,
		AppointmentID:  flag.AppointmentID,
		RequiresAction: true,
		ActionDeadline: now.Add(actionWindow),
		CreatedAt:      now,
	}

	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	if s.broker != nil && cfg != nil && cfg.AlertsFor(flag.Severity) {
		event := map[string]interface{}{
			"type":      "alert.created",
			"alert_id":  alert.ID,
			"doctor_id": alert.DoctorID,
			"severity":  alert.Severity,
		}
		if err := s.broker.Publish(ctx, publishChannel, event); err != nil {
			log.Warn().Err(err).Str("alert_id", alert.ID.String()).Msg("failed to publish alert event")
		}
	}

	return alert, nil
}

func (s *Service) MarkRead(ctx context.Context, alertID uuid.UUID) error {
	alert, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return err
	}
	if alert.Read {
		return nil
	}

	now := time.Now().UTC()
	alert.Read = true
	alert.ReadAt = &now
	return s.repo.Update(ctx, alert)
}

func (s *Service) Acknowledge(ctx context.Context, alertID uuid.UUID) error {
	alert, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return err
	}
	alert.Acknowledged = true
	return s.repo.Update(ctx, alert)
}

func (s *Service) Dismiss(ctx context.Context, alertID uuid.UUID) error {
	alert, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return err
	}
	alert.Dismissed = true
	return s.repo.Update(ctx, alert)
}

// GetDoctorAlerts lists a doctor's alerts newest-first, capped at 50.
func (s *Service) GetDoctorAlerts(ctx context.Context, doctorID uuid.UUID, unreadOnly bool) ([]*model.Alert, error) {
	return s.repo.ListByDoctor(ctx, doctorID, unreadOnly, maxAlertsPage)
}
