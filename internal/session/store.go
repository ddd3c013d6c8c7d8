package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/yexiu0529666/gobang/internal/client"
	"github.com/yexiu0529666/gobang/internal/model"
	"github.com/yexiu0529666/gobang/internal/storage"
)

// Store owns the credential lifecycle: restore-on-start, login,
// register, logout, profile refresh. It is the pipeline's credential
// source, and the single place a credential is ever cleared.
//
// Invariant: token and user are committed and cleared together. There
// is no state where a stale user survives a cleared token.
type Store struct {
	client  *client.Client
	storage storage.TokenStorage
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
	user  *model.User

	listenerMu   sync.Mutex
	onInvalidate []func()
}

// New creates a session store backed by the given token storage.
// AttachPipeline must be called before any operation that talks to the
// server.
func New(tokens storage.TokenStorage, logger *slog.Logger) *Store {
	return &Store{
		storage: tokens,
		logger:  logger,
	}
}

// Ensure the store can serve as the pipeline's credential source
var _ client.CredentialSource = (*Store)(nil)

// AttachPipeline wires the store to the HTTP pipeline: the store
// becomes the pipeline's auth-failure handler, and the pipeline becomes
// the store's transport.
func (s *Store) AttachPipeline(c *client.Client) {
	s.client = c
	c.SetAuthFailureHandler(s.handleAuthRejected)
}

// Credential returns the current token, or "" when unauthenticated
func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a credential is held
func (s *Store) IsAuthenticated() bool {
	return s.Credential() != ""
}

// CurrentUser returns a copy of the cached profile, or nil when
// unauthenticated
func (s *Store) CurrentUser() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// OnInvalidate registers a callback run whenever the session is
// cleared, by logout or by server rejection. The match store uses this
// to drop its cache and disconnect the channel.
func (s *Store) OnInvalidate(fn func()) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.onInvalidate = append(s.onInvalidate, fn)
}

type authResponse struct {
	Message string      `json:"message,omitempty"`
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
	Error   string      `json:"error,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the registration payload. Email is optional.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// Initialize attempts to restore a persisted session. The restored
// token is verified against the profile endpoint with the token
// attached explicitly, before it is committed as the pipeline's
// credential. A token the server no longer accepts is cleared from
// storage. A missing token is not an error.
func (s *Store) Initialize(ctx context.Context) error {
	token, err := s.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted credential: %w", err)
	}
	if token == "" {
		return nil
	}

	var user model.User
	if err := s.client.DoWithToken(ctx, http.MethodGet, "/auth/me", token, nil, &user); err != nil {
		s.logger.Info("persisted credential no longer valid, clearing",
			slog.String("error", err.Error()))
		if clearErr := s.storage.Clear(ctx); clearErr != nil {
			return fmt.Errorf("failed to clear stale credential: %w", clearErr)
		}
		return nil
	}

	s.commit(token, &user)
	return nil
}

// Login authenticates with the server and commits the session. On
// failure nothing is committed: there is never a token without a user
// or a user without a token.
func (s *Store) Login(ctx context.Context, username, password string) error {
	var resp authResponse
	err := s.client.Post(ctx, "/auth/login", loginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusBadRequest) {
			return fmt.Errorf("%w: %s", model.ErrInvalidCredentials, apiErr.Message)
		}
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("%w: %s", model.ErrInvalidCredentials, resp.Error)
	}
	if resp.Token == "" || resp.User == nil {
		return fmt.Errorf("%w: login response missing token or user", model.ErrInvalidResponse)
	}

	if err := s.storage.Save(ctx, resp.Token); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	s.commit(resp.Token, resp.User)
	return nil
}

// Register creates an account and commits the resulting session with
// the same atomicity contract as Login. Server-side validation
// failures surface as ErrValidationFailed, distinct from transport
// errors.
func (s *Store) Register(ctx context.Context, req RegisterRequest) error {
	var resp authResponse
	err := s.client.Post(ctx, "/auth/register", req, &resp)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			return fmt.Errorf("%w: %s", model.ErrValidationFailed, apiErr.Message)
		}
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("%w: %s", model.ErrValidationFailed, resp.Error)
	}
	if resp.Token == "" || resp.User == nil {
		return fmt.Errorf("%w: register response missing token or user", model.ErrInvalidResponse)
	}

	if err := s.storage.Save(ctx, resp.Token); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	s.commit(resp.Token, resp.User)
	return nil
}

// Logout notifies the server, then unconditionally clears the local
// session and persisted credential. The returned error reports only
// whether the remote notification succeeded; the local clear always
// happens.
func (s *Store) Logout(ctx context.Context) error {
	var remoteErr error
	if s.IsAuthenticated() {
		remoteErr = s.client.Post(ctx, "/auth/logout", nil, nil)
		if remoteErr != nil {
			s.logger.Warn("logout notification failed",
				slog.String("error", remoteErr.Error()))
		}
	}

	s.invalidate(ctx)
	return remoteErr
}

// FetchUser refreshes the cached profile. A 401 clears the session (the
// pipeline has already run the failure sequence by the time it
// returns); any other error leaves the session intact, so a flaky
// network does not de-authenticate the user.
func (s *Store) FetchUser(ctx context.Context) (*model.User, error) {
	if !s.IsAuthenticated() {
		return nil, model.ErrNotAuthenticated
	}

	var user model.User
	if err := s.client.Get(ctx, "/auth/me", &user); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.token != "" {
		s.user = &user
	}
	s.mu.Unlock()

	u := user
	return &u, nil
}

// UpdateProfile changes the account email and/or password. Empty
// fields are left unchanged.
func (s *Store) UpdateProfile(ctx context.Context, email, password string) error {
	body := map[string]string{}
	if email != "" {
		body["email"] = email
	}
	if password != "" {
		body["password"] = password
	}
	if len(body) == 0 {
		return nil
	}

	if err := s.client.Put(ctx, "/me", body, nil); err != nil {
		return err
	}

	if email != "" {
		s.mu.Lock()
		if s.user != nil {
			s.user.Email = email
		}
		s.mu.Unlock()
	}
	return nil
}

// SendVerificationCode asks the server to dispatch a verification code.
// This is an anonymous operation; failures carry the server-supplied
// message when one is available.
func (s *Store) SendVerificationCode(ctx context.Context, email string) error {
	var resp struct {
		Message string `json:"message,omitempty"`
		Error   string `json:"error,omitempty"`
	}
	err := s.client.Post(ctx, "/auth/send-verification-code", map[string]string{"email": email}, &resp)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return fmt.Errorf("%w: %s", model.ErrVerificationDispatchFailed, apiErr.Message)
		}
		return fmt.Errorf("%w: %w", model.ErrVerificationDispatchFailed, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("%w: %s", model.ErrVerificationDispatchFailed, resp.Error)
	}
	return nil
}

// commit atomically installs a verified credential and profile and
// re-arms the pipeline's auth-failure latch for the new epoch.
func (s *Store) commit(token string, user *model.User) {
	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()

	s.client.ResetAuthGuard()
	s.logger.Info("session established", slog.String("username", user.Username))
}

// handleAuthRejected is the pipeline's auth-failure callback. The
// pipeline guarantees it runs at most once per authenticated epoch even
// when several in-flight requests are rejected concurrently.
func (s *Store) handleAuthRejected() {
	s.invalidate(context.Background())
}

// invalidate clears the in-memory session and the persisted credential
// together, then notifies listeners. Listeners fire only when a
// credential was actually held, so repeated triggers are harmless.
func (s *Store) invalidate(ctx context.Context) {
	s.mu.Lock()
	hadCredential := s.token != ""
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.storage.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear persisted credential",
			slog.String("error", err.Error()))
	}

	if !hadCredential {
		return
	}

	s.logger.Info("session cleared")

	s.listenerMu.Lock()
	listeners := make([]func(), len(s.onInvalidate))
	copy(listeners, s.onInvalidate)
	s.listenerMu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
