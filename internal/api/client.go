package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/assesslyhq/assessly-go/internal/config"
	"github.com/assesslyhq/assessly-go/internal/model"
)

// Client is a typed wrapper over the Assessly REST API. All business
// logic (grading, scheduling, persistence) lives server-side; the client
// only shuttles entities back and forth.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// New creates an API client from configuration. The access token may be
// empty and set later via SetToken after login.
func New(cfg *config.Config, log zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.HTTPTimeout).
		SetHeader("Content-Type", "application/json")

	if cfg.AccessToken != "" {
		httpClient.SetAuthToken(cfg.AccessToken)
	}

	return &Client{
		http: httpClient,
		log:  log.With().Str("component", "api_client").Logger(),
	}
}

// SetToken installs a bearer token for all subsequent requests.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// envelope is the standard API response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *Error          `json:"error,omitempty"`
}

// do executes one request and decodes the data envelope into out (when
// non-nil). Every failure comes back as *Error so callers can inspect
// the code. There is no retry: a failed request is terminal for the
// operation that issued it.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("Request failed")
		return &Error{Code: ErrTransport, Message: err.Error()}
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return &Error{
			Status:  resp.StatusCode(),
			Code:    ErrTransport,
			Message: fmt.Sprintf("decode response: %v", err),
		}
	}

	if resp.IsError() {
		if env.Error != nil {
			env.Error.Status = resp.StatusCode()
			return env.Error
		}
		return &Error{
			Status:  resp.StatusCode(),
			Code:    ErrInternal,
			Message: http.StatusText(resp.StatusCode()),
		}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{
				Status:  resp.StatusCode(),
				Code:    ErrTransport,
				Message: fmt.Sprintf("decode data: %v", err),
			}
		}
	}
	return nil
}

// ─── Auth ───────────────────────────────────────────────────────────────

// Login exchanges credentials for a bearer token and installs it on the
// client.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var data struct {
		Token string `json:"token"`
	}
	req := model.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &data); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	c.SetToken(data.Token)
	return data.Token, nil
}

// ─── Assessments ────────────────────────────────────────────────────────

// ListAssessments returns all assessments visible to the caller.
func (c *Client) ListAssessments(ctx context.Context) ([]model.Assessment, error) {
	var data struct {
		Assessments []model.Assessment `json:"assessments"`
	}
	if err := c.do(ctx, http.MethodGet, "/assessments", nil, &data); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return data.Assessments, nil
}

// GetAssessment returns the full assessment detail with nested modules,
// questions and options.
func (c *Client) GetAssessment(ctx context.Context, id int64) (*model.Assessment, error) {
	var data struct {
		Assessment model.Assessment `json:"assessment"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/assessments/%d", id), nil, &data); err != nil {
		return nil, fmt.Errorf("get assessment %d: %w", id, err)
	}
	return &data.Assessment, nil
}

// CreateAssessment creates a new assessment and returns the stored entity
// with its server-assigned id.
func (c *Client) CreateAssessment(ctx context.Context, req model.AssessmentRequest) (*model.Assessment, error) {
	var data struct {
		Assessment model.Assessment `json:"assessment"`
	}
	if err := c.do(ctx, http.MethodPost, "/assessments", req, &data); err != nil {
		return nil, fmt.Errorf("create assessment: %w", err)
	}
	return &data.Assessment, nil
}

// UpdateAssessment updates an existing assessment by id.
func (c *Client) UpdateAssessment(ctx context.Context, id int64, req model.AssessmentRequest) (*model.Assessment, error) {
	var data struct {
		Assessment model.Assessment `json:"assessment"`
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/assessments/%d", id), req, &data); err != nil {
		return nil, fmt.Errorf("update assessment %d: %w", id, err)
	}
	return &data.Assessment, nil
}

// ─── Modules ────────────────────────────────────────────────────────────

// CreateModule creates a module under its assessment.
func (c *Client) CreateModule(ctx context.Context, req model.ModuleRequest) (*model.Module, error) {
	var data struct {
		Module model.Module `json:"module"`
	}
	if err := c.do(ctx, http.MethodPost, "/modules", req, &data); err != nil {
		return nil, fmt.Errorf("create module: %w", err)
	}
	return &data.Module, nil
}

// UpdateModule updates an existing module by id.
func (c *Client) UpdateModule(ctx context.Context, id int64, req model.ModuleRequest) (*model.Module, error) {
	var data struct {
		Module model.Module `json:"module"`
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/modules/%d", id), req, &data); err != nil {
		return nil, fmt.Errorf("update module %d: %w", id, err)
	}
	return &data.Module, nil
}

// DeleteModule deletes a module by id.
func (c *Client) DeleteModule(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/modules/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete module %d: %w", id, err)
	}
	return nil
}

// ─── Questions ──────────────────────────────────────────────────────────

// CreateQuestion creates a question. Nested options in the request are
// created in the same call; the response carries their server ids.
func (c *Client) CreateQuestion(ctx context.Context, req model.QuestionRequest) (*model.Question, error) {
	var data struct {
		Question model.Question `json:"question"`
	}
	if err := c.do(ctx, http.MethodPost, "/questions", req, &data); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return &data.Question, nil
}

// UpdateQuestion updates question fields by id. Options in the request
// are ignored by the server on update.
func (c *Client) UpdateQuestion(ctx context.Context, id int64, req model.QuestionRequest) (*model.Question, error) {
	var data struct {
		Question model.Question `json:"question"`
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/questions/%d", id), req, &data); err != nil {
		return nil, fmt.Errorf("update question %d: %w", id, err)
	}
	return &data.Question, nil
}

// DeleteQuestion deletes a question by id.
func (c *Client) DeleteQuestion(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/questions/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete question %d: %w", id, err)
	}
	return nil
}

// ─── Options ────────────────────────────────────────────────────────────

// AddOption appends a single option to an existing question and returns
// the stored option with its server id.
func (c *Client) AddOption(ctx context.Context, questionID int64, req model.OptionRequest) (*model.Option, error) {
	var data struct {
		Option model.Option `json:"option"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/questions/%d/options", questionID), req, &data); err != nil {
		return nil, fmt.Errorf("add option to question %d: %w", questionID, err)
	}
	return &data.Option, nil
}

// DeleteOption deletes an option by id.
func (c *Client) DeleteOption(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/options/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete option %d: %w", id, err)
	}
	return nil
}

// ─── Attempts ───────────────────────────────────────────────────────────

// StartAttempt starts or resumes the caller's attempt for an assessment.
// The endpoint is idempotent: an already in-flight attempt is returned
// as-is instead of erroring.
func (c *Client) StartAttempt(ctx context.Context, assessmentID int64) (*model.Attempt, error) {
	var data struct {
		Attempt model.Attempt `json:"attempt"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/assessments/%d/attempts", assessmentID), nil, &data); err != nil {
		return nil, fmt.Errorf("start attempt for assessment %d: %w", assessmentID, err)
	}
	return &data.Attempt, nil
}

// SaveAnswer persists one per-question answer for an attempt.
func (c *Client) SaveAnswer(ctx context.Context, attemptID int64, req model.SaveAnswerRequest) error {
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/attempts/%d/save", attemptID), req, nil); err != nil {
		return fmt.Errorf("save answer for attempt %d: %w", attemptID, err)
	}
	return nil
}

// SubmitAttempt finalizes an attempt. Scoring is server-authoritative;
// the returned attempt carries the submitted-at timestamp.
func (c *Client) SubmitAttempt(ctx context.Context, attemptID int64) (*model.Attempt, error) {
	var data struct {
		Attempt model.Attempt `json:"attempt"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/attempts/%d/submit", attemptID), nil, &data); err != nil {
		return nil, fmt.Errorf("submit attempt %d: %w", attemptID, err)
	}
	return &data.Attempt, nil
}
