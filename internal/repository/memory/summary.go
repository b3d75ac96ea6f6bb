package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
)

// SummaryRepository derives the per-doctor listing from the flag repository,
// mirroring how the durable store joins against the flags table.
type SummaryRepository struct {
	mu        sync.Mutex
	summaries map[uuid.UUID]*model.FlagSummary
	flags     *FlagRepository
}

func NewSummaryRepository(flags *FlagRepository) *SummaryRepository {
	return &SummaryRepository{
		summaries: make(map[uuid.UUID]*model.FlagSummary),
		flags:     flags,
	}
}

var _ repository.SummaryRepository = (*SummaryRepository)(nil)

func (r *SummaryRepository) Upsert(_ context.Context, summary *model.FlagSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *summary
	r.summaries[summary.PatientID] = &clone
	return nil
}

func (r *SummaryRepository) Get(_ context.Context, patientID uuid.UUID) (*model.FlagSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary, ok := r.summaries[patientID]
	if !ok {
		return nil, apperrors.NotFound("flag summary", nil)
	}
	clone := *summary
	return &clone, nil
}

func (r *SummaryRepository) Delete(_ context.Context, patientID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.summaries, patientID)
	return nil
}

func (r *SummaryRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.FlaggedPatient, error) {
	patientIDs := r.flags.patientsOfDoctor(doctorID)

	r.mu.Lock()
	defer r.mu.Unlock()

	var patients []*model.FlaggedPatient
	for _, patientID := range patientIDs {
		summary, ok := r.summaries[patientID]
		if !ok {
			continue
		}
		last := summary.LastFlagDate
		patients = append(patients, &model.FlaggedPatient{
			PatientID:    summary.PatientID,
			PatientName:  summary.PatientName,
			FlagCount:    summary.TotalFlags,
			RiskLevel:    summary.RiskLevel,
			LastFlagDate: &last,
		})
	}

	sort.Slice(patients, func(i, j int) bool {
		return patients[i].LastFlagDate.After(*patients[j].LastFlagDate)
	})
	return patients, nil
}
