package flagconfig

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/patrickmn/go-cache"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
)

const (
	cacheDuration   = 15 * time.Minute
	cleanupInterval = 1 * time.Hour
)

// Service serves per-doctor flagging configurations, creating defaults lazily
// on first access. Reads go through an in-process cache; updates invalidate.
type Service struct {
	repo  repository.ConfigRepository
	cache *cache.Cache
}

func NewService(repo repository.ConfigRepository) *Service {
	return &Service{
		repo:  repo,
		cache: cache.New(cacheDuration, cleanupInterval),
	}
}

// GetOrCreate returns the doctor's configuration, persisting the documented
// defaults when none exists yet.
func (s *Service) GetOrCreate(ctx context.Context, doctorID uuid.UUID) (*model.FlaggingConfiguration, error) {
	if cached, ok := s.cache.Get(doctorID.String()); ok {
		cfg := *cached.(*model.FlaggingConfiguration)
		return &cfg, nil
	}

	cfg, err := s.repo.Get(ctx, doctorID)
	if apperrors.IsCode(err, apperrors.ErrNotFound) {
		cfg = model.DefaultFlaggingConfiguration(doctorID)
		if err := s.repo.Create(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default configuration: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	s.cache.Set(doctorID.String(), cfg, cache.DefaultExpiration)
	clone := *cfg
	return &clone, nil
}

// Update applies the non-nil fields of the request and invalidates the cache
// entry for the doctor.
func (s *Service) Update(ctx context.Context, doctorID uuid.UUID, req *model.UpdateFlaggingConfigRequest) (*model.FlaggingConfiguration, error) {
	cfg, err := s.GetOrCreate(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	if req.EnableAutoFlagging != nil {
		cfg.EnableAutoFlagging = *req.EnableAutoFlagging
	}
	if req.FlagAfterMissedNotifications != nil {
		cfg.FlagAfterMissedNotifications = *req.FlagAfterMissedNotifications
	}
	if req.FlagSeverityForNoResponse != nil {
		cfg.FlagSeverityForNoResponse = model.FlagSeverity(*req.FlagSeverityForNoResponse)
	}
	if req.ResponseTimeoutHours != nil {
		cfg.ResponseTimeoutHours = *req.ResponseTimeoutHours
	}
	if req.AppointmentGracePeriodMinutes != nil {
		cfg.AppointmentGracePeriodMinutes = *req.AppointmentGracePeriodMinutes
	}
	if req.EnableRealTimeAlerts != nil {
		cfg.EnableRealTimeAlerts = *req.EnableRealTimeAlerts
	}
	if req.AlertForSeverities != nil {
		cfg.AlertForSeverities = pq.StringArray(req.AlertForSeverities)
	}
	if req.FlagRetentionMonths != nil {
		cfg.FlagRetentionMonths = *req.FlagRetentionMonths
	}
	if req.AutoResolveOldFlags != nil {
		cfg.AutoResolveOldFlags = *req.AutoResolveOldFlags
	}
	cfg.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to update configuration: %w", err)
	}

	s.cache.Delete(doctorID.String())
	return cfg, nil
}
