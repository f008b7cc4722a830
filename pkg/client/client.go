// Package client is a typed Go client for the mandate HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mandate/pkg/digest"
	id "mandate/pkg/domain"
)

const apiPrefix = "/v1"

// RetryConfig bounds retries of idempotent requests on transient statuses.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode  int
	Code        string `json:"error"`
	Description string `json:"error_description"`
	// Reason names the specific failure within Code, e.g. field_too_long.
	Reason      string `json:"reason"`
	RequestID   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mandate api: status=%d code=%s: %s", e.StatusCode, e.Code, e.Description)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsConflict reports whether err is an APIError with status 409.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

// HasReason reports whether err is an APIError carrying reason.
func HasReason(err error, reason string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Reason == reason
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client talks to one mandate server with one bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      RetryConfig
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// New builds a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      RetryConfig{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.MaxAttempts < 1 {
		c.retry.MaxAttempts = 1
	}
	return c
}

// CreatePolicy delegates new terms. The token must carry the authority role.
func (c *Client) CreatePolicy(ctx context.Context, req CreatePolicyRequest) (*Policy, error) {
	var out Policy
	if err := c.do(ctx, http.MethodPost, "/policies", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPolicy returns a policy by ID.
func (c *Client) GetPolicy(ctx context.Context, policyID id.PolicyID) (*Policy, error) {
	var out Policy
	if err := c.do(ctx, http.MethodGet, "/policies/"+policyID.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentPolicy returns the authority's most recent policy, active or not.
func (c *Client) CurrentPolicy(ctx context.Context, authority id.AuthorityID) (*Policy, error) {
	var out Policy
	if err := c.do(ctx, http.MethodGet, "/authorities/"+authority.String()+"/policy", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogRefusal records a refused action. The token must carry the agent role;
// the server records the token subject as the agent.
func (c *Client) LogRefusal(ctx context.Context, policyID id.PolicyID, req LogRefusalRequest) (*RefusalLog, error) {
	var out RefusalLog
	if err := c.do(ctx, http.MethodPost, "/policies/"+policyID.String()+"/refusals", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogExecution records an executed action.
func (c *Client) LogExecution(ctx context.Context, policyID id.PolicyID, req LogExecutionRequest) (*ExecutionLog, error) {
	var out ExecutionLog
	if err := c.do(ctx, http.MethodPost, "/policies/"+policyID.String()+"/executions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRefusals returns a policy's refusals, newest first. limit <= 0 uses the
// server default.
func (c *Client) ListRefusals(ctx context.Context, policyID id.PolicyID, limit int) ([]RefusalLog, error) {
	var out struct {
		Refusals []RefusalLog `json:"refusals"`
	}
	if err := c.do(ctx, http.MethodGet, listPath(policyID, "refusals", limit), nil, &out); err != nil {
		return nil, err
	}
	return out.Refusals, nil
}

// ListExecutions returns a policy's executions, newest first.
func (c *Client) ListExecutions(ctx context.Context, policyID id.PolicyID, limit int) ([]ExecutionLog, error) {
	var out struct {
		Executions []ExecutionLog `json:"executions"`
	}
	if err := c.do(ctx, http.MethodGet, listPath(policyID, "executions", limit), nil, &out); err != nil {
		return nil, err
	}
	return out.Executions, nil
}

// FindDecision returns every record carrying hash.
func (c *Client) FindDecision(ctx context.Context, hash digest.Digest) (*DecisionRecords, error) {
	var out DecisionRecords
	if err := c.do(ctx, http.MethodGet, "/decisions/"+hash.Hex(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify asks the server to recompute the bindings of every record carrying
// hash. It needs no token.
func (c *Client) Verify(ctx context.Context, hash digest.Digest) (*VerificationReport, error) {
	var out VerificationReport
	if err := c.do(ctx, http.MethodGet, "/decisions/"+hash.Hex()+"/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func listPath(policyID id.PolicyID, kind string, limit int) string {
	path := "/policies/" + policyID.String() + "/" + kind
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	return path
}

// do sends one request. GETs are retried on 502, 503 and 504; writes are not,
// since a lost response may hide a stored record.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	attempts := 1
	if method == http.MethodGet {
		attempts = c.retry.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := c.backoff(ctx, attempt); err != nil {
				return err
			}
		}
		retry, err := c.send(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return lastErr
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if out == nil || len(raw) == 0 {
			return false, nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
		return false, nil
	}
	return retryableStatus(resp.StatusCode), decodeError(resp, raw)
}

func decodeError(resp *http.Response, raw []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))
		apiErr.Description = strings.TrimSpace(string(raw))
	}
	return apiErr
}

func retryableStatus(status int) bool {
	return status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := c.retry.BaseDelay << (attempt - 2)
	if c.retry.MaxDelay > 0 && delay > c.retry.MaxDelay {
		delay = c.retry.MaxDelay
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
