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

// AppointmentSource is a fixture-backed stand-in for the external appointment
// store. FailQueries simulates the store being unreachable.
type AppointmentSource struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
	FailQueries  bool
}

func NewAppointmentSource() *AppointmentSource {
	return &AppointmentSource{appointments: make(map[uuid.UUID]*model.Appointment)}
}

var _ repository.AppointmentSource = (*AppointmentSource)(nil)

// Add seeds an appointment fixture.
func (r *AppointmentSource) Add(apt *model.Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *apt
	r.appointments[apt.ID] = &clone
}

func (r *AppointmentSource) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailQueries {
		return nil, apperrors.StoreUnavailable(nil)
	}
	apt, ok := r.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	clone := *apt
	return &clone, nil
}

func (r *AppointmentSource) ListCandidates(_ context.Context, status model.AppointmentStatus, before time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailQueries {
		return nil, apperrors.StoreUnavailable(nil)
	}

	var appointments []*model.Appointment
	for _, apt := range r.appointments {
		if apt.Status != status || apt.DateTime.After(before) {
			continue
		}
		clone := *apt
		appointments = append(appointments, &clone)
	}

	sort.Slice(appointments, func(i, j int) bool {
		return appointments[i].DateTime.Before(appointments[j].DateTime)
	})
	return appointments, nil
}
