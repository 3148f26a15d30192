package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/finapp/advisor-engine/internal/models"
)

// Client is a Go SDK for the advisor-engine API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new advisor-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// envelope mirrors the API response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

// APIError is a structured error returned by the service.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s - %s", e.Code, e.Message)
}

// ListAdvisors retrieves the advisor catalog
func (c *Client) ListAdvisors(ctx context.Context) ([]*models.AdvisorDefinition, error) {
	var data struct {
		Advisors []*models.AdvisorDefinition `json:"advisors"`
		Total    int                         `json:"total"`
	}
	if err := c.call(ctx, "GET", "/api/v1/advisors", nil, &data); err != nil {
		return nil, err
	}
	return data.Advisors, nil
}

// GetAdvisor retrieves one advisor definition
func (c *Client) GetAdvisor(ctx context.Context, advisorID string) (*models.AdvisorDefinition, error) {
	var def models.AdvisorDefinition
	if err := c.call(ctx, "GET", "/api/v1/advisors/"+url.PathEscape(advisorID), nil, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// StartSession starts (or resumes) a questionnaire session
func (c *Client) StartSession(ctx context.Context, req models.StartSessionRequest) (*models.Session, error) {
	var session models.Session
	if err := c.call(ctx, "POST", "/api/v1/sessions", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession retrieves a session by ID
func (c *Client) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	if err := c.call(ctx, "GET", "/api/v1/sessions/"+url.PathEscape(sessionID), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions retrieves a user's session history
func (c *Client) ListSessions(ctx context.Context, userID, advisorID string, limit, offset int) ([]*models.Session, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	if advisorID != "" {
		q.Set("advisor_id", advisorID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var data struct {
		Sessions []*models.Session `json:"sessions"`
		Total    int               `json:"total"`
	}
	if err := c.call(ctx, "GET", "/api/v1/sessions?"+q.Encode(), nil, &data); err != nil {
		return nil, err
	}
	return data.Sessions, nil
}

// CurrentStep retrieves the question awaiting an answer
func (c *Client) CurrentStep(ctx context.Context, sessionID string) (*models.CurrentStepResponse, error) {
	var step models.CurrentStepResponse
	if err := c.call(ctx, "GET", "/api/v1/sessions/"+url.PathEscape(sessionID)+"/step", nil, &step); err != nil {
		return nil, err
	}
	return &step, nil
}

// SubmitAnswer submits an answer for the session's current step
func (c *Client) SubmitAnswer(ctx context.Context, sessionID string, req models.SubmitAnswerRequest) (*models.SubmitAnswerResponse, error) {
	var result models.SubmitAnswerResponse
	if err := c.call(ctx, "POST", "/api/v1/sessions/"+url.PathEscape(sessionID)+"/answers", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetInsight retrieves the insight for a completed session
func (c *Client) GetInsight(ctx context.Context, sessionID string) (*models.Insight, error) {
	var insight models.Insight
	if err := c.call(ctx, "GET", "/api/v1/sessions/"+url.PathEscape(sessionID)+"/insight", nil, &insight); err != nil {
		return nil, err
	}
	return &insight, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, "GET", "/health", nil, nil)
}

// call performs a request and decodes the envelope into out (when non-nil).
func (c *Client) call(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("HTTP %d: failed to unmarshal response: %w", resp.StatusCode, err)
	}

	if !env.Success {
		if env.Error != nil {
			return env.Error
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}

	return nil
}
