package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/jo-hoe/classwatch/internal/tokenstore"
)

type mockAuthenticator struct {
	token string
	err   error
	calls int
}

func (m *mockAuthenticator) Login(ctx context.Context, email, password string) (string, error) {
	m.calls++
	return m.token, m.err
}

type failingStore struct {
	tokenstore.Store
	err error
}

func (s failingStore) Set(ctx context.Context, key, value string) error {
	return s.err
}

func (s failingStore) Delete(ctx context.Context, key string) error {
	return s.err
}

func TestLoginForm_SubmitSuccess(t *testing.T) {
	ctx := context.Background()
	tokens := tokenstore.NewMemoryStore()
	form := NewLoginForm(&mockAuthenticator{token: "token-123"}, tokens, nil)

	if err := form.Submit(ctx, "ms.rao@school.edu", "secret"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	state := form.State()
	if !state.Authenticated {
		t.Error("expected to be authenticated")
	}
	if state.Message != MessageSuccess {
		t.Errorf("Message = %q, want %q", state.Message, MessageSuccess)
	}
	if state.Email != "ms.rao@school.edu" {
		t.Errorf("Email = %q", state.Email)
	}
	token, err := tokens.Get(ctx, TokenKey)
	if err != nil || token != "token-123" {
		t.Errorf("stored token = %q, %v; want token-123", token, err)
	}
}

func TestLoginForm_SubmitFailures(t *testing.T) {
	storageErr := errors.New("disk full")

	tests := []struct {
		name          string
		email         string
		password      string
		authenticator *mockAuthenticator
		store         tokenstore.Store
		wantErr       error
		wantCalls     int
	}{
		{
			name: "missing email", email: "", password: "secret",
			authenticator: &mockAuthenticator{token: "t"}, wantErr: ErrInvalidForm,
		},
		{
			name: "malformed email", email: "ms.rao", password: "secret",
			authenticator: &mockAuthenticator{token: "t"}, wantErr: ErrInvalidForm,
		},
		{
			name: "missing password", email: "ms.rao@school.edu", password: "",
			authenticator: &mockAuthenticator{token: "t"}, wantErr: ErrInvalidForm,
		},
		{
			name: "rejected", email: "ms.rao@school.edu", password: "wrong",
			authenticator: &mockAuthenticator{err: ErrInvalidCredentials}, wantErr: ErrInvalidCredentials, wantCalls: 1,
		},
		{
			name: "service down", email: "ms.rao@school.edu", password: "secret",
			authenticator: &mockAuthenticator{err: ErrUnavailable}, wantErr: ErrUnavailable, wantCalls: 1,
		},
		{
			name: "token not stored", email: "ms.rao@school.edu", password: "secret",
			authenticator: &mockAuthenticator{token: "t"},
			store:         failingStore{Store: tokenstore.NewMemoryStore(), err: storageErr},
			wantErr:       ErrUnavailable, wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tt.store
			if store == nil {
				store = tokenstore.NewMemoryStore()
			}
			form := NewLoginForm(tt.authenticator, store, nil)

			err := form.Submit(context.Background(), tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.authenticator.calls != tt.wantCalls {
				t.Errorf("authenticator called %d times, want %d", tt.authenticator.calls, tt.wantCalls)
			}

			state := form.State()
			if state.Authenticated {
				t.Error("must not be authenticated after a failure")
			}
			if state.Message != MessageFailure {
				t.Errorf("Message = %q, want %q", state.Message, MessageFailure)
			}
		})
	}
}

func TestLoginForm_FailureAfterSuccessDeauthenticates(t *testing.T) {
	ctx := context.Background()
	tokens := tokenstore.NewMemoryStore()
	authenticator := &mockAuthenticator{token: "tok-1"}
	form := NewLoginForm(authenticator, tokens, nil)
	if err := form.Submit(ctx, "ms.rao@school.edu", "secret"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	authenticator.err = ErrInvalidCredentials
	if err := form.Submit(ctx, "ms.rao@school.edu", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if form.State().Authenticated {
		t.Error("expected the failed submit to leave the form unauthenticated")
	}
	if token, err := tokens.Get(ctx, TokenKey); !errors.Is(err, tokenstore.ErrNotFound) {
		t.Errorf("stored token = %q, %v; want it removed after the failed submit", token, err)
	}
}

func TestLoginForm_Logout(t *testing.T) {
	ctx := context.Background()
	tokens := tokenstore.NewMemoryStore()
	form := NewLoginForm(&mockAuthenticator{token: "t"}, tokens, nil)
	if err := form.Submit(ctx, "ms.rao@school.edu", "secret"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if err := form.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	state := form.State()
	want := State{Message: MessageLogout}
	if state != want {
		t.Errorf("State = %+v, want %+v", state, want)
	}
	if _, err := tokens.Get(ctx, TokenKey); !errors.Is(err, tokenstore.ErrNotFound) {
		t.Errorf("token still stored after logout: %v", err)
	}

	// logging out twice is harmless
	if err := form.Logout(ctx); err != nil {
		t.Errorf("second Logout failed: %v", err)
	}
}

func TestLoginForm_LogoutStorageFailure(t *testing.T) {
	form := NewLoginForm(&mockAuthenticator{}, failingStore{Store: tokenstore.NewMemoryStore(), err: errors.New("gone")}, nil)
	if err := form.Logout(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if form.State().Authenticated {
		t.Error("state must be cleared even when the token cannot be removed")
	}
}
