package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
)

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type RecordOptions struct {
	ReviewComments string
	LegalBasis     string
	PatientConsent bool
	Metadata       interface{}
}

// Record appends one audit entry for a flag state transition. Entries are the
// compliance trail; callers must not skip this on any create/resolve/amend
// path.
func (s *Service) Record(ctx context.Context, flag *model.Flag, action model.AuditAction, performedBy uuid.UUID, performedByType model.ActorType, changeReason string, opts *RecordOptions) error {
	entry := &model.AuditEntry{
		ID:              uuid.New(),
		FlagID:          flag.ID,
		PatientID:       flag.PatientID,
		DoctorID:        flag.DoctorID,
		Action:          action,
		PerformedBy:     performedBy,
		PerformedByType: performedByType,
		ChangeReason:    changeReason,
		LegalBasis:      model.LegalBasisLegitimateInterest,
		Timestamp:       time.Now().UTC(),
	}

	if opts != nil {
		if opts.ReviewComments != "" {
			comments := opts.ReviewComments
			entry.ReviewComments = &comments
		}
		if opts.LegalBasis != "" {
			entry.LegalBasis = opts.LegalBasis
		}
		entry.PatientConsent = opts.PatientConsent
		if opts.Metadata != nil {
			metadata, err := json.Marshal(opts.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal audit metadata: %w", err)
			}
			entry.Metadata = metadata
		}
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditEntry, error) {
	if filters.Limit <= 0 || filters.Limit > 500 {
		filters.Limit = 500
	}
	return s.repo.List(ctx, filters)
}
