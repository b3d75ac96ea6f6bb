package compliance

import (
	"context"

	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
)

// Result is the outcome of a compliance check.
type Result struct {
	Compliant  bool     `json:"compliant"`
	Errors     []string `json:"errors"`
	LegalBasis string   `json:"legal_basis"`
}

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// ValidateCompliance runs the GDPR gate that precedes any flag persistence.
// The current policy treats clinical non-response tracking as a legitimate
// interest and always passes; callers must still treat a non-compliant result
// as a hard abort with no partial writes, so the policy body can be tightened
// without touching the lifecycle manager.
func (s *Service) ValidateCompliance(_ context.Context, _ uuid.UUID, _ uuid.UUID) (*Result, error) {
	return &Result{
		Compliant:  true,
		Errors:     nil,
		LegalBasis: model.LegalBasisLegitimateInterest,
	}, nil
}
