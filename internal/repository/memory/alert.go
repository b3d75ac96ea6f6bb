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

type AlertRepository struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]*model.Alert
}

func NewAlertRepository() *AlertRepository {
	return &AlertRepository{alerts: make(map[uuid.UUID]*model.Alert)}
}

var _ repository.AlertRepository = (*AlertRepository)(nil)

func (r *AlertRepository) Create(_ context.Context, alert *model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *alert
	r.alerts[alert.ID] = &clone
	return nil
}

func (r *AlertRepository) Get(_ context.Context, id uuid.UUID) (*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, ok := r.alerts[id]
	if !ok {
		return nil, apperrors.NotFound("alert", nil)
	}
	clone := *alert
	return &clone, nil
}

func (r *AlertRepository) Update(_ context.Context, alert *model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[alert.ID]; !ok {
		return apperrors.NotFound("alert", nil)
	}
	clone := *alert
	r.alerts[alert.ID] = &clone
	return nil
}

func (r *AlertRepository) ListByDoctor(_ context.Context, doctorID uuid.UUID, unreadOnly bool, limit int) ([]*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var alerts []*model.Alert
	for _, a := range r.alerts {
		if a.DoctorID != doctorID || a.Dismissed {
			continue
		}
		if unreadOnly && a.Read {
			continue
		}
		clone := *a
		alerts = append(alerts, &clone)
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts, nil
}
