package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
)

// FlagRepository is the in-memory implementation used by tests. The mutex
// makes check-then-insert atomic, standing in for the durable store's
// partial unique index.
type FlagRepository struct {
	mu        sync.Mutex
	flags     map[uuid.UUID]*model.Flag
	revisions map[uuid.UUID][]*model.FlagRevision
}

func NewFlagRepository() *FlagRepository {
	return &FlagRepository{
		flags:     make(map[uuid.UUID]*model.Flag),
		revisions: make(map[uuid.UUID][]*model.FlagRevision),
	}
}

var _ repository.FlagRepository = (*FlagRepository)(nil)

func (r *FlagRepository) CreateActive(_ context.Context, flag *model.Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.flags {
		if f.AppointmentID == flag.AppointmentID && f.PatientID == flag.PatientID && f.Status == model.FlagStatusActive {
			return apperrors.ConcurrencyConflict("active flag already exists", nil)
		}
	}

	clone := *flag
	r.flags[flag.ID] = &clone
	return nil
}

func (r *FlagRepository) Get(_ context.Context, id uuid.UUID) (*model.Flag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flag, ok := r.flags[id]
	if !ok {
		return nil, apperrors.NotFound("flag", nil)
	}
	clone := *flag
	return &clone, nil
}

func (r *FlagRepository) Update(_ context.Context, flag *model.Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.flags[flag.ID]; !ok {
		return apperrors.NotFound("flag", nil)
	}
	clone := *flag
	r.flags[flag.ID] = &clone
	return nil
}

func (r *FlagRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.flags[id]; !ok {
		return apperrors.NotFound("flag", nil)
	}
	delete(r.flags, id)
	delete(r.revisions, id)
	return nil
}

func (r *FlagRepository) HasActiveFlag(_ context.Context, appointmentID, patientID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.flags {
		if f.AppointmentID == appointmentID && f.PatientID == patientID && f.Status == model.FlagStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (r *FlagRepository) ListByPatient(_ context.Context, patientID uuid.UUID, includeResolved bool) ([]*model.Flag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var flags []*model.Flag
	for _, f := range r.flags {
		if f.PatientID != patientID {
			continue
		}
		if !includeResolved && f.Status != model.FlagStatusActive {
			continue
		}
		clone := *f
		flags = append(flags, &clone)
	}

	sort.Slice(flags, func(i, j int) bool {
		return flags[i].CreatedAt.After(flags[j].CreatedAt)
	})
	return flags, nil
}

func (r *FlagRepository) SaveRevision(_ context.Context, rev *model.FlagRevision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *rev
	r.revisions[rev.FlagID] = append(r.revisions[rev.FlagID], &clone)
	return nil
}

func (r *FlagRepository) ListRevisions(_ context.Context, flagID uuid.UUID) ([]*model.FlagRevision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	revs := make([]*model.FlagRevision, 0, len(r.revisions[flagID]))
	for _, rev := range r.revisions[flagID] {
		clone := *rev
		revs = append(revs, &clone)
	}
	sort.Slice(revs, func(i, j int) bool { return revs[i].Version < revs[j].Version })
	return revs, nil
}

// patientsOfDoctor returns the distinct patients for whom the doctor owns at
// least one flag.
func (r *FlagRepository) patientsOfDoctor(doctorID uuid.UUID) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uuid.UUID]bool)
	var patients []uuid.UUID
	for _, f := range r.flags {
		if f.DoctorID == doctorID && !seen[f.PatientID] {
			seen[f.PatientID] = true
			patients = append(patients, f.PatientID)
		}
	}
	return patients
}

func (r *FlagRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, f := range r.flags {
		if f.DataRetentionExpiry.Before(before) {
			delete(r.flags, id)
			delete(r.revisions, id)
			deleted++
		}
	}
	return deleted, nil
}
