package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/opencase/benefits-portal-api/internal/models"
	"github.com/opencase/benefits-portal-api/internal/repository"
	appErrors "github.com/opencase/benefits-portal-api/pkg/errors"
)

const (
	creditBase      = 1.0
	creditPerReport = 0.5
)

// creditAdjuster is the slice of the case store manual adjustments need.
type creditAdjuster interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
	ApplyTransition(ctx context.Context, params repository.TransitionParams) error
}

// CreditService computes and records case credit values. The default formula
// is pure and total; history writes ride inside the triggering transition's
// transaction so credit and status history never diverge.
type CreditService struct {
	repo   creditAdjuster
	logger *zap.Logger
}

// NewCreditService constructs the service. The repository may be nil when
// only the pure calculation is needed.
func NewCreditService(repo creditAdjuster, logger *zap.Logger) *CreditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CreditService{repo: repo, logger: logger}
}

// CalculateDefaultCredit derives the credit value from a report count:
// 1.0 for the first report plus 0.5 per additional report, capped at the
// credit ceiling. Counts below one are coerced to one.
func (s *CreditService) CalculateDefaultCredit(numReports int) float64 {
	if numReports < 1 {
		numReports = 1
	}
	credit := creditBase + creditPerReport*float64(numReports-1)
	if credit > models.CreditValueCap {
		credit = models.CreditValueCap
	}
	return credit
}

// AdjustCredit overrides a case's credit value through the audited side
// channel. The value must stay within [0, cap]; the history row captures the
// previous value as "before".
func (s *CreditService) AdjustCredit(ctx context.Context, caseID string, value float64, actorID string, creditCtx models.CreditContext, reason string) (*models.Case, error) {
	if value < 0 || value > models.CreditValueCap {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument,
			fmt.Sprintf("credit value must be within [0, %.1f]", models.CreditValueCap))
	}
	if !creditCtx.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "unknown credit context")
	}
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "an adjustment reason is required")
	}

	c, err := s.repo.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}

	params := repository.TransitionParams{
		CaseID: c.ID,
		Update: repository.CaseUpdate{
			CreditValue:  &value,
			CreditReason: &reason,
		},
		Audit: &models.AuditLog{
			ActorID:     actorRef(actorID),
			Action:      models.AuditActionCreditAdjusted,
			Description: reason,
			Changes: encodeChanges(map[string]models.FieldChange{
				"credit_value": {From: c.CreditValue, To: value},
			}),
		},
		Credit: &models.CreditAuditLog{
			ValueBefore: c.CreditValue,
			ValueAfter:  value,
			ActorID:     actorRef(actorID),
			Context:     creditCtx,
			Reason:      reason,
		},
	}
	if err := s.repo.ApplyTransition(ctx, params); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust credit")
	}
	updated, err := s.repo.GetByID(ctx, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload case")
	}
	return updated, nil
}
