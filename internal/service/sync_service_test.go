package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencase/benefits-portal-api/internal/benefitsapi"
	"github.com/opencase/benefits-portal-api/internal/models"
	"github.com/opencase/benefits-portal-api/internal/repository"
	"github.com/opencase/benefits-portal-api/pkg/clock"
	appErrors "github.com/opencase/benefits-portal-api/pkg/errors"
)

type syncCaseStoreStub struct {
	cases   map[string]*models.Case
	results []repository.SyncResultParams
}

func newSyncCaseStoreStub() *syncCaseStoreStub {
	return &syncCaseStoreStub{cases: make(map[string]*models.Case)}
}

func (s *syncCaseStoreStub) GetByID(ctx context.Context, id string) (*models.Case, error) {
	if c, ok := s.cases[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *syncCaseStoreStub) ListSyncRetryCandidates(ctx context.Context) ([]models.Case, error) {
	var out []models.Case
	for _, c := range s.cases {
		if c.Status == models.CaseStatusSubmitted && c.APISyncStatus == models.SyncStatusFailed && c.ExternalCaseID == nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *syncCaseStoreStub) UpdateSyncResult(ctx context.Context, params repository.SyncResultParams) error {
	c, ok := s.cases[params.CaseID]
	if !ok {
		return sql.ErrNoRows
	}
	s.results = append(s.results, params)
	c.APISyncStatus = params.Status
	if c.ExternalCaseID == nil && params.ExternalCaseID != nil {
		c.ExternalCaseID = params.ExternalCaseID
	}
	if params.SyncedAt != nil {
		c.LastSyncedAt = params.SyncedAt
	}
	return nil
}

type callLogStoreStub struct {
	logs      map[string]*models.APICallLog
	completed map[string]repository.CallResultParams
	counts    map[string]int
}

func newCallLogStoreStub() *callLogStoreStub {
	return &callLogStoreStub{
		logs:      make(map[string]*models.APICallLog),
		completed: make(map[string]repository.CallResultParams),
		counts:    make(map[string]int),
	}
}

func (s *callLogStoreStub) Open(ctx context.Context, log *models.APICallLog) error {
	if log.ID == "" {
		log.ID = log.CaseID + "-attempt"
	}
	s.logs[log.ID] = log
	s.counts[log.CaseID]++
	return nil
}

func (s *callLogStoreStub) Complete(ctx context.Context, id string, params repository.CallResultParams) error {
	if _, ok := s.completed[id]; ok {
		return sql.ErrNoRows
	}
	s.completed[id] = params
	return nil
}

func (s *callLogStoreStub) CountByCase(ctx context.Context, caseID string) (int, error) {
	return s.counts[caseID], nil
}

type submitterStub struct {
	payloads []benefitsapi.SubmitPayload
	result   *benefitsapi.Result
	err      *benefitsapi.CallError
}

func (s *submitterStub) Endpoint() string {
	return "https://benefits.example/cases/submit"
}

func (s *submitterStub) SubmitCase(ctx context.Context, payload benefitsapi.SubmitPayload) (*benefitsapi.Result, *benefitsapi.CallError) {
	s.payloads = append(s.payloads, payload)
	return s.result, s.err
}

func syncableCase(id string) *models.Case {
	submitted := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	return &models.Case{
		ID:            id,
		Status:        models.CaseStatusSubmitted,
		MemberID:      "member-1",
		MemberEmail:   "dana@example.com",
		EmployeeName:  "Dana Smith",
		WorkshopCode:  "WS-204",
		NumReports:    2,
		APISyncStatus: models.SyncStatusPending,
		SubmittedAt:   &submitted,
		FormData:      []byte(`{"field":"value"}`),
	}
}

func newSyncFixture(repo *syncCaseStoreStub, calls *callLogStoreStub, client *submitterStub) (*SyncService, *auditStub) {
	audit := &auditStub{}
	settings := &settingsStub{settings: models.DefaultSettings()}
	fixed := clock.Fixed{Instant: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)}
	svc := NewSyncService(repo, calls, settings, audit, nil, fixed, nil)
	svc.newClient = func(baseURL, apiKey string, timeout time.Duration) caseSubmitter {
		return client
	}
	return svc, audit
}

func TestSyncServiceSubmitSuccess(t *testing.T) {
	repo := newSyncCaseStoreStub()
	calls := newCallLogStoreStub()
	repo.cases["c1"] = syncableCase("c1")
	client := &submitterStub{result: &benefitsapi.Result{CaseID: "EXT-77", Status: 201, Body: `{"case_id":"EXT-77"}`}}
	svc, audit := newSyncFixture(repo, calls, client)

	require.NoError(t, svc.SubmitCase(context.Background(), "c1", 1))

	require.Len(t, client.payloads, 1)
	require.Equal(t, "WS-204", client.payloads[0].WorkshopCode)
	require.Equal(t, "2026-03-10T09:30:00Z", client.payloads[0].SubmittedAt)

	c := repo.cases["c1"]
	require.Equal(t, models.SyncStatusSynced, c.APISyncStatus)
	require.NotNil(t, c.ExternalCaseID)
	require.Equal(t, "EXT-77", *c.ExternalCaseID)
	require.NotNil(t, c.LastSyncedAt)

	require.Len(t, calls.logs, 1)
	require.Len(t, calls.completed, 1)
	for _, params := range calls.completed {
		require.True(t, params.Success)
	}
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionCaseSynced, audit.logs[0].Action)
}

func TestSyncServiceSubmitMarksRushAtThreshold(t *testing.T) {
	repo := newSyncCaseStoreStub()
	calls := newCallLogStoreStub()
	c := syncableCase("c1")
	c.Rush = false
	c.NumReports = 5 // default rush threshold
	repo.cases["c1"] = c
	client := &submitterStub{result: &benefitsapi.Result{CaseID: "EXT-78", Status: 201}}
	svc, _ := newSyncFixture(repo, calls, client)

	require.NoError(t, svc.SubmitCase(context.Background(), "c1", 1))
	require.Len(t, client.payloads, 1)
	require.True(t, client.payloads[0].Rush)
}

func TestSyncServiceSubmitBelowThresholdNotRush(t *testing.T) {
	repo := newSyncCaseStoreStub()
	calls := newCallLogStoreStub()
	repo.cases["c1"] = syncableCase("c1") // 2 reports, no rush flag
	client := &submitterStub{result: &benefitsapi.Result{CaseID: "EXT-79", Status: 201}}
	svc, _ := newSyncFixture(repo, calls, client)

	require.NoError(t, svc.SubmitCase(context.Background(), "c1", 1))
	require.Len(t, client.payloads, 1)
	require.False(t, client.payloads[0].Rush)
}

func TestSyncServiceSubmitFailure(t *testing.T) {
	repo := newSyncCaseStoreStub()
	calls := newCallLogStoreStub()
	repo.cases["c1"] = syncableCase("c1")
	client := &submitterStub{err: &benefitsapi.CallError{Reason: "unexpected status 500", Status: 500, Transient: true}}
	svc, audit := newSyncFixture(repo, calls, client)

	err := svc.SubmitCase(context.Background(), "c1", 1)
	require.Error(t, err)

	c := repo.cases["c1"]
	require.Equal(t, models.SyncStatusFailed, c.APISyncStatus)
	require.Nil(t, c.ExternalCaseID)

	require.Len(t, calls.completed, 1)
	for _, params := range calls.completed {
		require.False(t, params.Success)
		require.NotNil(t, params.ErrorMessage)
	}
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionCaseSyncFailed, audit.logs[0].Action)
}

func TestSyncServiceSubmitSkipsAlreadySynced(t *testing.T) {
	repo := newSyncCaseStoreStub()
	calls := newCallLogStoreStub()
	external := "EXT-1"
	c := syncableCase("c1")
	c.ExternalCaseID = &external
	repo.cases["c1"] = c
	client := &submitterStub{}
	svc, _ := newSyncFixture(repo, calls, client)

	require.NoError(t, svc.SubmitCase(context.Background(), "c1", 1))
	require.Empty(t, client.payloads)
	require.Empty(t, calls.logs)
}

func TestSyncServiceRetryCeiling(t *testing.T) {
	repo := newSyncCaseStoreStub()
	calls := newCallLogStoreStub()
	c := syncableCase("c1")
	c.APISyncStatus = models.SyncStatusFailed
	repo.cases["c1"] = c
	calls.counts["c1"] = 3 // already at APIMaxRetries
	client := &submitterStub{}
	svc, _ := newSyncFixture(repo, calls, client)

	err := svc.RetryFailedSubmission(context.Background(), "c1")
	require.ErrorIs(t, err, appErrors.ErrMaxRetriesExceeded)
	// The ceiling is checked before any network call.
	require.Empty(t, client.payloads)
}

func TestSyncServiceRetryUnderCeiling(t *testing.T) {
	repo := newSyncCaseStoreStub()
	calls := newCallLogStoreStub()
	c := syncableCase("c1")
	c.APISyncStatus = models.SyncStatusFailed
	repo.cases["c1"] = c
	calls.counts["c1"] = 2
	client := &submitterStub{result: &benefitsapi.Result{CaseID: "EXT-9", Status: 200}}
	svc, _ := newSyncFixture(repo, calls, client)

	require.NoError(t, svc.RetryFailedSubmission(context.Background(), "c1"))
	require.Len(t, client.payloads, 1)
	require.Equal(t, models.SyncStatusSynced, repo.cases["c1"].APISyncStatus)

	var attempt int
	for _, log := range calls.logs {
		attempt = log.AttemptNumber
	}
	require.Equal(t, 3, attempt)
}

func TestSyncServiceRetrySweep(t *testing.T) {
	repo := newSyncCaseStoreStub()
	calls := newCallLogStoreStub()

	retryable := syncableCase("c1")
	retryable.APISyncStatus = models.SyncStatusFailed
	repo.cases["c1"] = retryable

	exhausted := syncableCase("c2")
	exhausted.APISyncStatus = models.SyncStatusFailed
	repo.cases["c2"] = exhausted
	calls.counts["c2"] = 3

	client := &submitterStub{result: &benefitsapi.Result{CaseID: "EXT-5", Status: 200}}
	svc, _ := newSyncFixture(repo, calls, client)

	result, err := svc.RetryFailedCases(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, 1, result.Skipped)
	require.Zero(t, result.Failed)
	require.Equal(t, models.SyncStatusSynced, repo.cases["c1"].APISyncStatus)
	require.Equal(t, models.SyncStatusFailed, repo.cases["c2"].APISyncStatus)
}

func TestSyncServiceRetrySweepDryRun(t *testing.T) {
	repo := newSyncCaseStoreStub()
	calls := newCallLogStoreStub()
	c := syncableCase("c1")
	c.APISyncStatus = models.SyncStatusFailed
	repo.cases["c1"] = c
	client := &submitterStub{}
	svc, _ := newSyncFixture(repo, calls, client)

	result, err := svc.RetryFailedCases(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.True(t, result.DryRun)
	require.Empty(t, client.payloads)
}
