package flag

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
	"github.com/medtrack/flagging-engine/internal/repository/memory"
	"github.com/medtrack/flagging-engine/internal/service/audit"
	"github.com/medtrack/flagging-engine/internal/service/compliance"
	"github.com/medtrack/flagging-engine/internal/service/summary"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
)

type testStack struct {
	flags     *memory.FlagRepository
	summaries *memory.SummaryRepository
	audits    *memory.AuditRepository
	svc       *Service
}

func newTestStack() *testStack {
	flags := memory.NewFlagRepository()
	summaries := memory.NewSummaryRepository(flags)
	audits := memory.NewAuditRepository()

	svc := NewService(
		flags,
		summary.NewService(flags, summaries),
		audit.NewService(audits),
		compliance.NewService(),
		nil,
	)
	return &testStack{flags: flags, summaries: summaries, audits: audits, svc: svc}
}

func testAppointment() *model.Appointment {
	now := time.Now().UTC()
	firstSent := now.Add(-4 * time.Hour)
	secondSent := now.Add(-3 * time.Hour)
	return &model.Appointment{
		ID:          uuid.New(),
		DoctorID:    uuid.New(),
		PatientID:   uuid.New(),
		PatientName: "John Doe",
		DateTime:    now.Add(-1 * time.Hour),
		Status:      model.AppointmentStatusScheduled,
		Notifications: model.NotificationState{
			FirstNotification:  model.NotificationAttempt{Sent: true, SentAt: &firstSent},
			SecondNotification: model.NotificationAttempt{Sent: true, SentAt: &secondSent},
		},
	}
}

func TestCreateFlagPopulatesLifecycleFields(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	apt := testAppointment()
	cfg := model.DefaultFlaggingConfiguration(apt.DoctorID)

	flag, err := stack.svc.CreateFlag(ctx, CreateParams{
		Appointment: apt,
		Reason:      model.FlagReasonNoResponse,
	}, cfg)
	require.NoError(t, err)

	assert.Equal(t, model.FlagStatusActive, flag.Status)
	assert.Equal(t, cfg.FlagSeverityForNoResponse, flag.Severity)
	assert.Equal(t, apt.PatientID, flag.PatientID)
	assert.Equal(t, apt.ID, flag.AppointmentID)
	assert.Equal(t, 2, flag.NotificationsSent)
	assert.Equal(t, 1, flag.Version)
	assert.NotEmpty(t, flag.Description)
	assert.True(t, flag.ResponseDeadline.After(flag.CreatedAt))
	assert.True(t, flag.DataRetentionExpiry.After(flag.CreatedAt.AddDate(0, cfg.FlagRetentionMonths-1, 0)))

	// Creation writes the summary and the audit entry in the same flow.
	sum, err := stack.summaries.Get(ctx, apt.PatientID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ActiveFlags)

	entries, err := stack.audits.List(ctx, &model.AuditFilters{FlagID: flag.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditActionCreated, entries[0].Action)
	assert.Equal(t, model.ActorTypeSystem, entries[0].PerformedByType)
	assert.Equal(t, model.LegalBasisLegitimateInterest, entries[0].LegalBasis)
}

func TestCreateFlagRejectsDuplicateActive(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	apt := testAppointment()
	cfg := model.DefaultFlaggingConfiguration(apt.DoctorID)

	_, err := stack.svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
	require.NoError(t, err)

	_, err = stack.svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConcurrencyConflict))
}

func TestCreateFlagAllowsNewFlagAfterResolution(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	apt := testAppointment()
	cfg := model.DefaultFlaggingConfiguration(apt.DoctorID)

	first, err := stack.svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
	require.NoError(t, err)

	_, err = stack.svc.ResolveFlag(ctx, first.ID, "patient called back", uuid.New())
	require.NoError(t, err)

	second, err := stack.svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestConcurrentCreateExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	apt := testAppointment()
	cfg := model.DefaultFlaggingConfiguration(apt.DoctorID)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = stack.svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperrors.IsCode(err, apperrors.ErrConcurrencyConflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicted)
}

func TestResolveFlag(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	apt := testAppointment()
	cfg := model.DefaultFlaggingConfiguration(apt.DoctorID)

	flag, err := stack.svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
	require.NoError(t, err)

	doctorID := uuid.New()
	resolved, err := stack.svc.ResolveFlag(ctx, flag.ID, "patient rescheduled", doctorID)
	require.NoError(t, err)

	assert.Equal(t, model.FlagStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, doctorID, *resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolutionNotes)
	assert.Equal(t, "patient rescheduled", *resolved.ResolutionNotes)

	// The summary follows the lifecycle change.
	sum, err := stack.summaries.Get(ctx, apt.PatientID)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.ActiveFlags)
	assert.Equal(t, 1, sum.ResolvedFlags)

	entries, err := stack.audits.List(ctx, &model.AuditFilters{FlagID: flag.ID, Action: model.AuditActionResolved})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].ReviewComments)
	assert.Equal(t, "patient rescheduled", *entries[0].ReviewComments)
}

func TestResolveFlagTwiceFails(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	apt := testAppointment()
	cfg := model.DefaultFlaggingConfiguration(apt.DoctorID)

	flag, err := stack.svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
	require.NoError(t, err)

	_, err = stack.svc.ResolveFlag(ctx, flag.ID, "done", uuid.New())
	require.NoError(t, err)

	_, err = stack.svc.ResolveFlag(ctx, flag.ID, "done again", uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrAlreadyResolved))
}

func TestResolveUnknownFlag(t *testing.T) {
	stack := newTestStack()

	_, err := stack.svc.ResolveFlag(context.Background(), uuid.New(), "notes", uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestApplyAmendmentKeepsHistory(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	apt := testAppointment()
	cfg := model.DefaultFlaggingConfiguration(apt.DoctorID)

	flag, err := stack.svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
	require.NoError(t, err)
	originalDescription := flag.Description

	high := model.FlagSeverityHigh
	newDescription := "escalated after repeated silence"
	amended, err := stack.svc.ApplyAmendment(ctx, flag.ID, AmendmentParams{
		Severity:     &high,
		Description:  &newDescription,
		ChangeReason: "severity reassessed",
		AmendedBy:    uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, model.FlagSeverityHigh, amended.Severity)
	assert.Equal(t, newDescription, amended.Description)
	assert.Equal(t, 2, amended.Version)

	revs, err := stack.svc.GetRevisions(ctx, flag.ID)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, 1, revs[0].Version)

	var snapshot model.Flag
	require.NoError(t, json.Unmarshal(revs[0].Snapshot, &snapshot))
	assert.Equal(t, originalDescription, snapshot.Description)
	assert.Equal(t, model.FlagSeverityMedium, snapshot.Severity)

	entries, err := stack.audits.List(ctx, &model.AuditFilters{FlagID: flag.ID, Action: model.AuditActionAmended})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "severity reassessed", entries[0].ChangeReason)
}

func TestApplyAmendmentRequiresChangeReason(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	apt := testAppointment()
	cfg := model.DefaultFlaggingConfiguration(apt.DoctorID)

	flag, err := stack.svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
	require.NoError(t, err)

	_, err = stack.svc.ApplyAmendment(ctx, flag.ID, AmendmentParams{AmendedBy: uuid.New()})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestGetPatientFlagsFiltersResolved(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	apt := testAppointment()
	cfg := model.DefaultFlaggingConfiguration(apt.DoctorID)

	flag, err := stack.svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
	require.NoError(t, err)

	_, err = stack.svc.ResolveFlag(ctx, flag.ID, "handled", uuid.New())
	require.NoError(t, err)

	active, err := stack.svc.GetPatientFlags(ctx, apt.PatientID, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := stack.svc.GetPatientFlags(ctx, apt.PatientID, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// failingAuditRepository rejects appends while fail is set. It wraps the
// real store so entries written after recovery still land.
type failingAuditRepository struct {
	repository.AuditRepository
	fail bool
}

func (r *failingAuditRepository) Create(ctx context.Context, entry *model.AuditEntry) error {
	if r.fail {
		return apperrors.StoreUnavailable(errors.New("audit store down"))
	}
	return r.AuditRepository.Create(ctx, entry)
}

type failingSummaryRepository struct {
	repository.SummaryRepository
	fail bool
}

func (r *failingSummaryRepository) Upsert(ctx context.Context, sum *model.FlagSummary) error {
	if r.fail {
		return apperrors.StoreUnavailable(errors.New("summary store down"))
	}
	return r.SummaryRepository.Upsert(ctx, sum)
}

func TestCreateFlagRollsBackWhenAuditWriteFails(t *testing.T) {
	ctx := context.Background()
	flags := memory.NewFlagRepository()
	summaries := memory.NewSummaryRepository(flags)
	audits := &failingAuditRepository{AuditRepository: memory.NewAuditRepository(), fail: true}

	svc := NewService(
		flags,
		summary.NewService(flags, summaries),
		audit.NewService(audits),
		compliance.NewService(),
		nil,
	)

	apt := testAppointment()
	cfg := model.DefaultFlaggingConfiguration(apt.DoctorID)

	_, err := svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
	require.Error(t, err)

	// The half-created flag must not survive, or no later pass would ever
	// pick the appointment up again.
	active, err := flags.HasActiveFlag(ctx, apt.ID, apt.PatientID)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = summaries.Get(ctx, apt.PatientID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

	// Once the store recovers the same appointment flags cleanly.
	audits.fail = false
	flag, err := svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
	require.NoError(t, err)
	assert.Equal(t, model.FlagStatusActive, flag.Status)

	entries, err := audits.List(ctx, &model.AuditFilters{FlagID: flag.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCreateFlagRollsBackWhenSummaryRecomputeFails(t *testing.T) {
	ctx := context.Background()
	flags := memory.NewFlagRepository()
	summaries := &failingSummaryRepository{SummaryRepository: memory.NewSummaryRepository(flags), fail: true}
	audits := memory.NewAuditRepository()

	svc := NewService(
		flags,
		summary.NewService(flags, summaries),
		audit.NewService(audits),
		compliance.NewService(),
		nil,
	)

	apt := testAppointment()
	cfg := model.DefaultFlaggingConfiguration(apt.DoctorID)

	_, err := svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
	require.Error(t, err)

	active, err := flags.HasActiveFlag(ctx, apt.ID, apt.PatientID)
	require.NoError(t, err)
	assert.False(t, active)

	// No audit record for a flag that no longer exists.
	entries, err := audits.List(ctx, &model.AuditFilters{PatientID: apt.PatientID})
	require.NoError(t, err)
	assert.Empty(t, entries)

	summaries.fail = false
	_, err = svc.CreateFlag(ctx, CreateParams{Appointment: apt, Reason: model.FlagReasonNoResponse}, cfg)
	require.NoError(t, err)
}
