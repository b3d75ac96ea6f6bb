package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
)

type ConfigRepository struct {
	mu      sync.Mutex
	configs map[uuid.UUID]*model.FlaggingConfiguration
}

func NewConfigRepository() *ConfigRepository {
	return &ConfigRepository{configs: make(map[uuid.UUID]*model.FlaggingConfiguration)}
}

var _ repository.ConfigRepository = (*ConfigRepository)(nil)

func (r *ConfigRepository) Get(_ context.Context, doctorID uuid.UUID) (*model.FlaggingConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[doctorID]
	if !ok {
		return nil, apperrors.NotFound("flagging configuration", nil)
	}
	clone := *cfg
	return &clone, nil
}

func (r *ConfigRepository) Create(_ context.Context, cfg *model.FlaggingConfiguration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[cfg.DoctorID]; ok {
		return nil
	}
	clone := *cfg
	r.configs[cfg.DoctorID] = &clone
	return nil
}

func (r *ConfigRepository) Update(_ context.Context, cfg *model.FlaggingConfiguration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[cfg.DoctorID]; !ok {
		return apperrors.NotFound("flagging configuration", nil)
	}
	clone := *cfg
	r.configs[cfg.DoctorID] = &clone
	return nil
}
