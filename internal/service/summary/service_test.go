package summary

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository/memory"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
)

func newService() (*Service, *memory.FlagRepository, *memory.SummaryRepository) {
	flags := memory.NewFlagRepository()
	summaries := memory.NewSummaryRepository(flags)
	return NewService(flags, summaries), flags, summaries
}

func seedFlag(t *testing.T, flags *memory.FlagRepository, patientID, doctorID uuid.UUID, severity model.FlagSeverity, status model.FlagStatus, createdAt time.Time) *model.Flag {
	t.Helper()
	f := &model.Flag{
		ID:            uuid.New(),
		PatientID:     patientID,
		PatientName:   "Jane Roe",
		DoctorID:      doctorID,
		Reason:        model.FlagReasonNoResponse,
		Severity:      severity,
		Status:        model.FlagStatusActive,
		AppointmentID: uuid.New(),
		Version:       1,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	require.NoError(t, flags.CreateActive(context.Background(), f))

	if status == model.FlagStatusResolved {
		now := time.Now().UTC()
		f.Status = model.FlagStatusResolved
		f.ResolvedAt = &now
		require.NoError(t, flags.Update(context.Background(), f))
	}
	return f
}

func TestRecomputeCountsMatchFlagSet(t *testing.T) {
	ctx := context.Background()
	svc, flags, _ := newService()
	patientID := uuid.New()
	doctorID := uuid.New()
	base := time.Now().UTC().Add(-72 * time.Hour)

	seedFlag(t, flags, patientID, doctorID, model.FlagSeverityLow, model.FlagStatusActive, base)
	seedFlag(t, flags, patientID, doctorID, model.FlagSeverityMedium, model.FlagStatusActive, base.Add(24*time.Hour))
	seedFlag(t, flags, patientID, doctorID, model.FlagSeverityHigh, model.FlagStatusResolved, base.Add(48*time.Hour))

	require.NoError(t, svc.Recompute(ctx, patientID))

	sum, err := svc.GetPatientSummary(ctx, patientID)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.TotalFlags)
	assert.Equal(t, 2, sum.ActiveFlags)
	assert.Equal(t, 1, sum.ResolvedFlags)
	assert.Equal(t, 1, sum.FlagsBySeverity.Low)
	assert.Equal(t, 1, sum.FlagsBySeverity.Medium)
	assert.Equal(t, 1, sum.FlagsBySeverity.High)
	assert.Equal(t, model.RiskLevelHigh, sum.RiskLevel)
	assert.Equal(t, base, sum.FirstFlagDate)
	assert.Equal(t, base.Add(48*time.Hour), sum.LastFlagDate)
	assert.NotNil(t, sum.LastResolutionDate)
}

func TestRecomputeDeletesSummaryWhenNoFlags(t *testing.T) {
	ctx := context.Background()
	svc, flags, summaries := newService()
	patientID := uuid.New()

	f := seedFlag(t, flags, patientID, uuid.New(), model.FlagSeverityLow, model.FlagStatusActive, time.Now().UTC())
	require.NoError(t, svc.Recompute(ctx, patientID))

	_, err := summaries.Get(ctx, patientID)
	require.NoError(t, err)

	// Retention purge removes the flag; the next recompute drops the summary.
	f.DataRetentionExpiry = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, flags.Update(ctx, f))
	_, err = flags.DeleteExpired(ctx, time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, svc.Recompute(ctx, patientID))

	_, err = summaries.Get(ctx, patientID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestRiskLevelPrecedence(t *testing.T) {
	cases := []struct {
		name   string
		counts model.SeverityCounts
		want   model.RiskLevel
	}{
		{"no flags", model.SeverityCounts{}, model.RiskLevelNone},
		{"single low", model.SeverityCounts{Low: 1}, model.RiskLevelLow},
		{"three lows stay low", model.SeverityCounts{Low: 3}, model.RiskLevelLow},
		{"four lows escalate", model.SeverityCounts{Low: 4}, model.RiskLevelMedium},
		{"single medium", model.SeverityCounts{Medium: 1}, model.RiskLevelMedium},
		{"two mediums stay medium", model.SeverityCounts{Medium: 2}, model.RiskLevelMedium},
		{"three mediums escalate", model.SeverityCounts{Medium: 3}, model.RiskLevelHigh},
		{"any high wins", model.SeverityCounts{Low: 1, High: 1}, model.RiskLevelHigh},
		{"high beats mediums", model.SeverityCounts{Medium: 1, High: 1}, model.RiskLevelHigh},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, riskLevel(tc.counts))
		})
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, flags, _ := newService()
	patientID := uuid.New()

	seedFlag(t, flags, patientID, uuid.New(), model.FlagSeverityMedium, model.FlagStatusActive, time.Now().UTC())

	require.NoError(t, svc.Recompute(ctx, patientID))
	first, err := svc.GetPatientSummary(ctx, patientID)
	require.NoError(t, err)

	require.NoError(t, svc.Recompute(ctx, patientID))
	second, err := svc.GetPatientSummary(ctx, patientID)
	require.NoError(t, err)

	assert.Equal(t, first.TotalFlags, second.TotalFlags)
	assert.Equal(t, first.ActiveFlags, second.ActiveFlags)
	assert.Equal(t, first.FlagsBySeverity, second.FlagsBySeverity)
	assert.Equal(t, first.RiskLevel, second.RiskLevel)
}

func TestListFlaggedPatients(t *testing.T) {
	ctx := context.Background()
	svc, flags, _ := newService()
	doctorID := uuid.New()
	patientA := uuid.New()
	patientB := uuid.New()

	seedFlag(t, flags, patientA, doctorID, model.FlagSeverityHigh, model.FlagStatusActive, time.Now().UTC())
	seedFlag(t, flags, patientB, doctorID, model.FlagSeverityLow, model.FlagStatusActive, time.Now().UTC())
	seedFlag(t, flags, uuid.New(), uuid.New(), model.FlagSeverityLow, model.FlagStatusActive, time.Now().UTC())

	require.NoError(t, svc.Recompute(ctx, patientA))
	require.NoError(t, svc.Recompute(ctx, patientB))

	patients, err := svc.ListFlaggedPatients(ctx, doctorID)
	require.NoError(t, err)
	assert.Len(t, patients, 2)
}
