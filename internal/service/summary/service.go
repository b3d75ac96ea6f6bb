package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
)

// Service maintains the derived per-patient risk aggregates.
type Service struct {
	flags     repository.FlagRepository
	summaries repository.SummaryRepository
}

func NewService(flags repository.FlagRepository, summaries repository.SummaryRepository) *Service {
	return &Service{flags: flags, summaries: summaries}
}

// Recompute rebuilds the patient's summary as a fold over their current flag
// set and overwrites it wholesale. A patient with no flags gets their summary
// deleted rather than zeroed out. Idempotent: same flags in, same summary out
// (modulo LastUpdated).
func (s *Service) Recompute(ctx context.Context, patientID uuid.UUID) error {
	flags, err := s.flags.ListByPatient(ctx, patientID, true)
	if err != nil {
		return fmt.Errorf("failed to load flags for summary: %w", err)
	}

	if len(flags) == 0 {
		if err := s.summaries.Delete(ctx, patientID); err != nil {
			return fmt.Errorf("failed to delete empty summary: %w", err)
		}
		return nil
	}

	summary := fold(patientID, flags)
	if err := s.summaries.Upsert(ctx, summary); err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}
	return nil
}

func fold(patientID uuid.UUID, flags []*model.Flag) *model.FlagSummary {
	summary := &model.FlagSummary{
		PatientID:     patientID,
		PatientName:   flags[0].PatientName,
		TotalFlags:    len(flags),
		FirstFlagDate: flags[0].CreatedAt,
		LastFlagDate:  flags[0].CreatedAt,
		LastUpdated:   time.Now().UTC(),
	}

	for _, f := range flags {
		switch f.Status {
		case model.FlagStatusActive:
			summary.ActiveFlags++
		case model.FlagStatusResolved:
			summary.ResolvedFlags++
		}

		switch f.Severity {
		case model.FlagSeverityLow:
			summary.FlagsBySeverity.Low++
		case model.FlagSeverityMedium:
			summary.FlagsBySeverity.Medium++
		case model.FlagSeverityHigh:
			summary.FlagsBySeverity.High++
		}

		if f.CreatedAt.Before(summary.FirstFlagDate) {
			summary.FirstFlagDate = f.CreatedAt
		}
		if f.CreatedAt.After(summary.LastFlagDate) {
			summary.LastFlagDate = f.CreatedAt
		}
		if f.ResolvedAt != nil {
			if summary.LastResolutionDate == nil || f.ResolvedAt.After(*summary.LastResolutionDate) {
				resolved := *f.ResolvedAt
				summary.LastResolutionDate = &resolved
			}
		}
	}

	summary.RiskLevel = riskLevel(summary.FlagsBySeverity)
	return summary
}

// riskLevel derives the coarse risk ordinal from severity counts; the highest
// matching rule wins.
func riskLevel(counts model.SeverityCounts) model.RiskLevel {
	switch {
	case counts.High > 0:
		return model.RiskLevelHigh
	case counts.Medium > 2:
		return model.RiskLevelHigh
	case counts.Medium > 0:
		return model.RiskLevelMedium
	case counts.Low > 3:
		return model.RiskLevelMedium
	case counts.Low > 0:
		return model.RiskLevelLow
	default:
		return model.RiskLevelNone
	}
}

// GetPatientSummary returns the stored aggregate for a patient.
func (s *Service) GetPatientSummary(ctx context.Context, patientID uuid.UUID) (*model.FlagSummary, error) {
	return s.summaries.Get(ctx, patientID)
}

// ListFlaggedPatients returns the flagged-patient projections for a doctor.
func (s *Service) ListFlaggedPatients(ctx context.Context, doctorID uuid.UUID) ([]*model.FlaggedPatient, error) {
	return s.summaries.ListByDoctor(ctx, doctorID)
}
