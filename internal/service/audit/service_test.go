package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository/memory"
)

func testFlag() *model.Flag {
	return &model.Flag{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Reason:    model.FlagReasonNoResponse,
		Severity:  model.FlagSeverityMedium,
		Status:    model.FlagStatusActive,
	}
}

func TestRecordFillsComplianceFields(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAuditRepository()
	svc := NewService(repo)
	flag := testFlag()

	err := svc.Record(ctx, flag, model.AuditActionCreated, uuid.Nil, model.ActorTypeSystem,
		"no_response_to_notifications", &RecordOptions{
			Metadata: map[string]interface{}{"notifications_sent": 2},
		})
	require.NoError(t, err)

	entries, err := svc.List(ctx, &model.AuditFilters{FlagID: flag.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, flag.PatientID, entry.PatientID)
	assert.Equal(t, flag.DoctorID, entry.DoctorID)
	assert.Equal(t, model.LegalBasisLegitimateInterest, entry.LegalBasis)
	assert.False(t, entry.Timestamp.IsZero())

	var metadata map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.Metadata, &metadata))
	assert.EqualValues(t, 2, metadata["notifications_sent"])
}

func TestListFiltersByActionAndPatient(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewAuditRepository())
	flagA := testFlag()
	flagB := testFlag()

	require.NoError(t, svc.Record(ctx, flagA, model.AuditActionCreated, uuid.Nil, model.ActorTypeSystem, "created", nil))
	require.NoError(t, svc.Record(ctx, flagA, model.AuditActionResolved, uuid.New(), model.ActorTypeDoctor, "resolved", nil))
	require.NoError(t, svc.Record(ctx, flagB, model.AuditActionCreated, uuid.Nil, model.ActorTypeSystem, "created", nil))

	created, err := svc.List(ctx, &model.AuditFilters{Action: model.AuditActionCreated})
	require.NoError(t, err)
	assert.Len(t, created, 2)

	forPatient, err := svc.List(ctx, &model.AuditFilters{PatientID: flagA.PatientID})
	require.NoError(t, err)
	assert.Len(t, forPatient, 2)

	resolvedForPatient, err := svc.List(ctx, &model.AuditFilters{
		PatientID: flagA.PatientID,
		Action:    model.AuditActionResolved,
	})
	require.NoError(t, err)
	assert.Len(t, resolvedForPatient, 1)
	assert.Equal(t, model.ActorTypeDoctor, resolvedForPatient[0].PerformedByType)
}
