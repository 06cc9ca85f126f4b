package benefitsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	submitPath    = "/cases/submit"
	portalVersion = "1.0"
)

// SubmitPayload is the outbound case submission body.
type SubmitPayload struct {
	WorkshopCode string          `json:"workshop_code"`
	MemberID     string          `json:"member_id"`
	MemberEmail  string          `json:"member_email"`
	EmployeeName string          `json:"employee_name"`
	NumReports   int             `json:"num_reports"`
	Rush         bool            `json:"rush"`
	FormData     json.RawMessage `json:"form_data"`
	SubmittedAt  string          `json:"submitted_at"`
}

// Result is the successful outcome of a submission: the external system
// accepted the case and returned its identifier.
type Result struct {
	CaseID   string
	Status   int
	Body     string
	Duration time.Duration
}

// CallError is any failed submission outcome. Transient failures (timeouts,
// connection errors, non-2xx responses, a 2xx body missing its case_id) are
// eligible for bounded retry; retry eligibility is a property of the value,
// not of its message text.
type CallError struct {
	Reason    string
	Status    int
	Body      string
	Duration  time.Duration
	Transient bool
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("benefits api: %s (status %d)", e.Reason, e.Status)
	}
	return fmt.Sprintf("benefits api: %s", e.Reason)
}

// Client submits case payloads to the external benefits-processing system.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a client with a hard request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the absolute submission URL, recorded on every call log.
func (c *Client) Endpoint() string {
	return c.baseURL + submitPath
}

type submitResponse struct {
	CaseID string `json:"case_id"`
}

// SubmitCase performs the outbound call. It never returns a raw transport
// error: every failure mode is folded into a *CallError so the caller can
// log it and decide on retry from the Transient flag.
func (c *Client) SubmitCase(ctx context.Context, payload SubmitPayload) (*Result, *CallError) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &CallError{Reason: fmt.Sprintf("encode payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, &CallError{Reason: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Portal-Version", portalVersion)

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		return nil, &CallError{
			Reason:    fmt.Sprintf("request failed: %v", err),
			Duration:  duration,
			Transient: true,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &CallError{
			Reason:    fmt.Sprintf("read response: %v", err),
			Status:    resp.StatusCode,
			Duration:  duration,
			Transient: true,
		}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &CallError{
			Reason:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
			Status:    resp.StatusCode,
			Body:      string(respBody),
			Duration:  duration,
			Transient: true,
		}
	}

	var parsed submitResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.CaseID == "" {
		return nil, &CallError{
			Reason:    "response missing case_id",
			Status:    resp.StatusCode,
			Body:      string(respBody),
			Duration:  duration,
			Transient: true,
		}
	}

	return &Result{
		CaseID:   parsed.CaseID,
		Status:   resp.StatusCode,
		Body:     string(respBody),
		Duration: duration,
	}, nil
}
