package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
)

type AuditRepository struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

var _ repository.AuditRepository = (*AuditRepository)(nil)

func (r *AuditRepository) Create(_ context.Context, entry *model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *entry
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *AuditRepository) List(_ context.Context, filters *model.AuditFilters) ([]*model.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var entries []*model.AuditEntry
	for _, e := range r.entries {
		if filters.FlagID != uuid.Nil && e.FlagID != filters.FlagID {
			continue
		}
		if filters.PatientID != uuid.Nil && e.PatientID != filters.PatientID {
			continue
		}
		if filters.DoctorID != uuid.Nil && e.DoctorID != filters.DoctorID {
			continue
		}
		if filters.Action != "" && e.Action != filters.Action {
			continue
		}
		clone := *e
		entries = append(entries, &clone)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if filters.Limit > 0 && len(entries) > filters.Limit {
		entries = entries[:filters.Limit]
	}
	return entries, nil
}

func (r *AuditRepository) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	var deleted int64
	for _, e := range r.entries {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return deleted, nil
}
