package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator"

	"github.com/jo-hoe/classwatch/internal/metrics"
	"github.com/jo-hoe/classwatch/internal/tokenstore"
)

// TokenKey is the key the access token is stored under
const TokenKey = "token"

const (
	MessageSuccess = "Login successful!"
	MessageFailure = "Login failed. Invalid email or password."
	MessageLogout  = "Logged out."
)

var ErrInvalidForm = errors.New("invalid login form")

// Authenticator exchanges credentials for an access token
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// State is what the login screen shows. The password is never part of it.
type State struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email"`
	Message       string `json:"message"`
}

// LoginForm keeps the login screen state and the stored token in step
type LoginForm struct {
	mu            sync.Mutex
	authenticator Authenticator
	tokens        tokenstore.Store
	validate      *validator.Validate
	metrics       *metrics.Metrics
	state         State
}

func NewLoginForm(authenticator Authenticator, tokens tokenstore.Store, m *metrics.Metrics) *LoginForm {
	return &LoginForm{
		authenticator: authenticator,
		tokens:        tokens,
		validate:      validator.New(),
		metrics:       m,
	}
}

// Submit logs in with the given credentials. Every failure shows the same
// message; the returned error tells rejected credentials apart from an
// unreachable service.
func (f *LoginForm) Submit(ctx context.Context, email, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state.Email = email
	err := f.submit(ctx, email, password)
	f.metrics.LoginAttempt(err == nil)
	if err != nil {
		slog.Warn("login failed", "email", email, "error", err)
		f.state.Authenticated = false
		f.state.Message = MessageFailure
		// an unauthenticated form never leaves an earlier token behind
		if delErr := f.tokens.Delete(ctx, TokenKey); delErr != nil {
			slog.Error("failed to remove stored token", "error", delErr)
		}
		return err
	}

	slog.Info("login successful", "email", email)
	f.state.Authenticated = true
	f.state.Message = MessageSuccess
	return nil
}

func (f *LoginForm) submit(ctx context.Context, email, password string) error {
	if err := f.validate.Struct(credentials{Email: email, Password: password}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	token, err := f.authenticator.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := f.tokens.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("%w: failed to store token: %v", ErrUnavailable, err)
	}
	return nil
}

// Logout removes the stored token and clears the form
func (f *LoginForm) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = State{Message: MessageLogout}
	if err := f.tokens.Delete(ctx, TokenKey); err != nil {
		slog.Error("failed to remove stored token", "error", err)
		return fmt.Errorf("failed to remove stored token: %w", err)
	}
	slog.Info("logged out")
	return nil
}

func (f *LoginForm) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}
