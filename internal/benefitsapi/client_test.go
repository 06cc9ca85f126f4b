package benefitsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() SubmitPayload {
	return SubmitPayload{
		WorkshopCode: "WS-100",
		MemberID:     "member-1",
		MemberEmail:  "member@example.com",
		EmployeeName: "Pat Doe",
		NumReports:   3,
		FormData:     json.RawMessage(`{"field":"value"}`),
		SubmittedAt:  "2025-03-14T10:00:00-04:00",
	}
}

func TestSubmitCaseSuccess(t *testing.T) {
	var gotAuth, gotVersion, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("X-Portal-Version")
		gotContentType = r.Header.Get("Content-Type")
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/cases/submit", r.URL.Path)

		var payload SubmitPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "WS-100", payload.WorkshopCode)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"case_id":"EXT-42"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-key", 5*time.Second)
	result, callErr := client.SubmitCase(context.Background(), testPayload())
	require.Nil(t, callErr)
	assert.Equal(t, "EXT-42", result.CaseID)
	assert.Equal(t, http.StatusCreated, result.Status)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "1.0", gotVersion)
	assert.Equal(t, "application/json", gotContentType)
}

func TestSubmitCaseServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", 5*time.Second)
	result, callErr := client.SubmitCase(context.Background(), testPayload())
	require.Nil(t, result)
	require.NotNil(t, callErr)
	assert.True(t, callErr.Transient)
	assert.Equal(t, http.StatusInternalServerError, callErr.Status)
}

func TestSubmitCaseMissingCaseID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", 5*time.Second)
	result, callErr := client.SubmitCase(context.Background(), testPayload())
	require.Nil(t, result)
	require.NotNil(t, callErr)
	assert.True(t, callErr.Transient)
	assert.Equal(t, "response missing case_id", callErr.Reason)
}

func TestSubmitCaseConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClient(srv.URL, "key", time.Second)
	result, callErr := client.SubmitCase(context.Background(), testPayload())
	require.Nil(t, result)
	require.NotNil(t, callErr)
	assert.True(t, callErr.Transient)
}
