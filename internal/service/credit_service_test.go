package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencase/benefits-portal-api/internal/models"
	appErrors "github.com/opencase/benefits-portal-api/pkg/errors"
)

func TestCalculateDefaultCredit(t *testing.T) {
	svc := NewCreditService(nil, nil)

	cases := []struct {
		reports int
		want    float64
	}{
		{1, 1.0},
		{2, 1.5},
		{3, 2.0},
		{4, 2.5},
		{5, 3.0},
		{6, 3.0},
		{100, 3.0},
		{0, 1.0},
		{-5, 1.0},
	}
	for _, tc := range cases {
		require.InDelta(t, tc.want, svc.CalculateDefaultCredit(tc.reports), 1e-9,
			"reports=%d", tc.reports)
	}
}

func TestCalculateDefaultCreditMonotone(t *testing.T) {
	svc := NewCreditService(nil, nil)
	prev := svc.CalculateDefaultCredit(1)
	for n := 2; n <= 100; n++ {
		current := svc.CalculateDefaultCredit(n)
		require.GreaterOrEqual(t, current, prev)
		require.LessOrEqual(t, current, models.CreditValueCap)
		prev = current
	}
}

func TestAdjustCreditWritesHistory(t *testing.T) {
	repo := newCaseStoreStub()
	svc := NewCreditService(repo, nil)
	ctx := context.Background()

	c := &models.Case{Status: models.CaseStatusSubmitted, MemberID: "member-1", CreditValue: 1.5}
	require.NoError(t, repo.Create(ctx, c, nil))

	updated, err := svc.AdjustCredit(ctx, c.ID, 2.5, "admin-1", models.CreditContextUpdate, "manual correction")
	require.NoError(t, err)
	require.InDelta(t, 2.5, updated.CreditValue, 1e-9)

	require.Len(t, repo.credits, 1)
	require.InDelta(t, 1.5, repo.credits[0].ValueBefore, 1e-9)
	require.InDelta(t, 2.5, repo.credits[0].ValueAfter, 1e-9)
	require.Equal(t, models.CreditContextUpdate, repo.credits[0].Context)

	require.Len(t, repo.audits, 1)
	require.Equal(t, models.AuditActionCreditAdjusted, repo.audits[0].Action)
}

func TestAdjustCreditRejectsOutOfRange(t *testing.T) {
	repo := newCaseStoreStub()
	svc := NewCreditService(repo, nil)
	ctx := context.Background()

	_, err := svc.AdjustCredit(ctx, "case-1", -0.5, "admin-1", models.CreditContextUpdate, "bad")
	require.ErrorIs(t, err, appErrors.ErrInvalidArgument)

	_, err = svc.AdjustCredit(ctx, "case-1", models.CreditValueCap+0.5, "admin-1", models.CreditContextUpdate, "bad")
	require.ErrorIs(t, err, appErrors.ErrInvalidArgument)

	_, err = svc.AdjustCredit(ctx, "case-1", 1.0, "admin-1", "mystery", "bad")
	require.ErrorIs(t, err, appErrors.ErrInvalidArgument)

	require.Empty(t, repo.credits)
}

func TestAdjustCreditUnknownCase(t *testing.T) {
	repo := newCaseStoreStub()
	svc := NewCreditService(repo, nil)

	_, err := svc.AdjustCredit(context.Background(), "missing", 1.0, "admin-1", models.CreditContextUpdate, "x")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}
