package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yexiu0529666/gobang/internal/model"
)

// CredentialSource supplies the current bearer credential. It is owned
// by the session store; the pipeline reads it on every request rather
// than being mutated imperatively from call sites.
type CredentialSource interface {
	// Credential returns the current token, or "" when unauthenticated
	Credential() string
}

// Config holds HTTP client settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns default HTTP client settings
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api",
		Timeout: 10 * time.Second,
	}
}

// Client is the request/response pipeline for the game API. Outgoing
// requests get the current credential attached as a bearer header when
// one is present; inbound 401 responses on authenticated requests run
// the auth-failure sequence at most once per authenticated epoch.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	logger     *slog.Logger

	mu            sync.Mutex
	onAuthFailure func()
	authHandled   bool
}

// New creates a new API client
func New(cfg Config, creds CredentialSource, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		creds:   creds,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SetAuthFailureHandler registers the callback run when the server
// rejects the attached credential
func (c *Client) SetAuthFailureHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAuthFailure = fn
}

// ResetAuthGuard re-arms the auth-failure latch. The session store calls
// this when a new authenticated epoch begins (login, register, restore).
func (c *Client) ResetAuthGuard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authHandled = false
}

// APIError represents an application-level error response from the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// errorBody covers both error shapes the server produces:
// {"error": "..."} and {"status": "error", "message": "..."}
type errorBody struct {
	Error   string `json:"error"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (b *errorBody) text() string {
	if b.Error != "" {
		return b.Error
	}
	return b.Message
}

// Do performs an HTTP request with the pipeline's credential attached
func (c *Client) Do(ctx context.Context, method, path string, body, result any) error {
	return c.do(ctx, method, path, c.creds.Credential(), body, result)
}

// DoWithToken performs a request with an explicitly supplied token,
// bypassing the credential source. Used during session restore, before
// the restored token has been committed.
func (c *Client) DoWithToken(ctx context.Context, method, path, token string, body, result any) error {
	return c.do(ctx, method, path, token, body, result)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrTransport, err)
	}

	// A 401 on a request that carried a credential means the session is
	// no longer valid: run the failure sequence once, then surface the
	// rejection. A 401 on an anonymous request (e.g. a bad login) is an
	// ordinary application error.
	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		c.handleAuthRejected(path)
		return fmt.Errorf("%s: %w", path, model.ErrAuthRejected)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb errorBody
		if err := json.Unmarshal(respBody, &eb); err == nil {
			apiErr.Message = eb.text()
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %w", model.ErrInvalidResponse, err)
		}
	}

	return nil
}

// handleAuthRejected fires the auth-failure handler at most once per
// authenticated epoch. Several requests rejected concurrently after the
// token expires must not each run the clear-and-redirect sequence.
func (c *Client) handleAuthRejected(path string) {
	c.mu.Lock()
	if c.authHandled {
		c.mu.Unlock()
		return
	}
	c.authHandled = true
	fn := c.onAuthFailure
	c.mu.Unlock()

	c.logger.Warn("credential rejected by server", slog.String("path", path))
	if fn != nil {
		fn()
	}
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.Do(ctx, http.MethodGet, path, nil, result)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.Do(ctx, http.MethodPost, path, body, result)
}

// Put performs a PUT request
func (c *Client) Put(ctx context.Context, path string, body, result any) error {
	return c.Do(ctx, http.MethodPut, path, body, result)
}
