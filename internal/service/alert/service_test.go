package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository/memory"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
)

// recordingBroker captures published messages for assertions.
type recordingBroker struct {
	mu       sync.Mutex
	messages []interface{}
	fail     bool
}

func (b *recordingBroker) Publish(_ context.Context, _ string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("broker down")
	}
	b.messages = append(b.messages, message)
	return nil
}

func (b *recordingBroker) Close() error { return nil }

func (b *recordingBroker) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

func fixtures() (*model.Flag, *model.Appointment, *model.FlaggingConfiguration) {
	now := time.Now().UTC()
	last := now.Add(-3 * time.Hour)
	doctorID := uuid.New()
	flag := &model.Flag{
		ID:                   uuid.New(),
		PatientID:            uuid.New(),
		PatientName:          "Bob Chan",
		DoctorID:             doctorID,
		Reason:               model.FlagReasonNoResponse,
		Severity:             model.FlagSeverityMedium,
		Status:               model.FlagStatusActive,
		AppointmentID:        uuid.New(),
		AppointmentDateTime:  now.Add(-2 * time.Hour),
		NotificationsSent:    2,
		LastNotificationSent: &last,
	}
	apt := &model.Appointment{
		ID:          flag.AppointmentID,
		DoctorID:    doctorID,
		PatientID:   flag.PatientID,
		PatientName: flag.PatientName,
		DateTime:    flag.AppointmentDateTime,
		Status:      model.AppointmentStatusScheduled,
	}
	return flag, apt, model.DefaultFlaggingConfiguration(doctorID)
}

func TestCreateAlertPopulatesActionWindow(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAlertRepository()
	svc := NewService(repo, nil)
	flag, apt, cfg := fixtures()

	created, err := svc.CreateAlert(ctx, flag, apt, cfg)
	require.NoError(t, err)

	assert.Equal(t, model.AlertTypePatientFlagged, created.Type)
	assert.Equal(t, flag.Severity, created.Severity)
	assert.Equal(t, flag.DoctorID, created.DoctorID)
	assert.Contains(t, created.Title, "Bob Chan")
	assert.Contains(t, created.Message, "2 reminder(s)")
	assert.True(t, created.RequiresAction)
	assert.WithinDuration(t, created.CreatedAt.Add(24*time.Hour), created.ActionDeadline, time.Second)
	assert.False(t, created.Read)
}

func TestCreateAlertPublishesForConfiguredSeverity(t *testing.T) {
	ctx := context.Background()
	broker := &recordingBroker{}
	svc := NewService(memory.NewAlertRepository(), broker)
	flag, apt, cfg := fixtures()

	_, err := svc.CreateAlert(ctx, flag, apt, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, broker.count())

	// Low severity is outside the default alert_for_severities set.
	flag.Severity = model.FlagSeverityLow
	flag.AppointmentID = uuid.New()
	_, err = svc.CreateAlert(ctx, flag, apt, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, broker.count())
}

func TestCreateAlertSurvivesBrokerFailure(t *testing.T) {
	ctx := context.Background()
	broker := &recordingBroker{fail: true}
	repo := memory.NewAlertRepository()
	svc := NewService(repo, broker)
	flag, apt, cfg := fixtures()

	created, err := svc.CreateAlert(ctx, flag, apt, cfg)
	require.NoError(t, err)

	// Publish failure is logged and dropped; the alert itself persists.
	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAlertRepository()
	svc := NewService(repo, nil)
	flag, apt, cfg := fixtures()

	created, err := svc.CreateAlert(ctx, flag, apt, cfg)
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, created.ID))
	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReadAt)
	firstReadAt := *stored.ReadAt

	require.NoError(t, svc.MarkRead(ctx, created.ID))
	stored, err = repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, firstReadAt, *stored.ReadAt)
}

func TestAcknowledgeAndDismiss(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAlertRepository()
	svc := NewService(repo, nil)
	flag, apt, cfg := fixtures()

	created, err := svc.CreateAlert(ctx, flag, apt, cfg)
	require.NoError(t, err)

	require.NoError(t, svc.Acknowledge(ctx, created.ID))
	require.NoError(t, svc.Dismiss(ctx, created.ID))

	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Acknowledged)
	assert.True(t, stored.Dismissed)
}

func TestTransitionUnknownAlert(t *testing.T) {
	svc := NewService(memory.NewAlertRepository(), nil)

	err := svc.MarkRead(context.Background(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestGetDoctorAlertsUnreadFilter(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAlertRepository()
	svc := NewService(repo, nil)
	flag, apt, cfg := fixtures()

	first, err := svc.CreateAlert(ctx, flag, apt, cfg)
	require.NoError(t, err)

	flag.AppointmentID = uuid.New()
	_, err = svc.CreateAlert(ctx, flag, apt, cfg)
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, first.ID))

	all, err := svc.GetDoctorAlerts(ctx, flag.DoctorID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	unread, err := svc.GetDoctorAlerts(ctx, flag.DoctorID, true)
	require.NoError(t, err)
	assert.Len(t, unread, 1)
}
