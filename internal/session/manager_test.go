package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/me/reportkit/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// authServer is an httptest fake of the token endpoints that counts calls.
type authServer struct {
	srv           *httptest.Server
	tokenCalls    atomic.Int64
	validateCalls atomic.Int64
	validateOK    atomic.Bool
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()
	a := &authServer{}
	a.validateOK.Store(true)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		a.tokenCalls.Add(1)
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "correct" {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code":    "invalid_credentials",
				"message": "Unknown username or bad password.",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token":         "issued-token",
			"user_email":    "alice@example.com",
			"user_nicename": "alice",
		})
	})
	mux.HandleFunc("POST /token/validate", func(w http.ResponseWriter, r *http.Request) {
		a.validateCalls.Add(1)
		if !a.validateOK.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code":    "jwt_auth_invalid_token",
				"message": "Expired token",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "jwt_auth_valid_token"})
	})

	a.srv = httptest.NewServer(mux)
	t.Cleanup(a.srv.Close)
	return a
}

func storedSession(age, sinceValidation time.Duration) *model.Session {
	now := time.Now()
	sess := &model.Session{
		Token:    "stored-token",
		IssuedAt: now.Add(-age),
		User:     &model.User{ID: 1, Username: "alice"},
	}
	if sinceValidation >= 0 {
		sess.LastValidatedAt = now.Add(-sinceValidation)
	}
	return sess
}

func TestGetValidToken_FreshToken_NoNetworkCalls(t *testing.T) {
	auth := newAuthServer(t)
	store := &MemStore{Sess: storedSession(2*24*time.Hour, 10*time.Minute)}
	m := NewManager(auth.srv.URL, store, testLogger())

	tok := m.GetValidToken(context.Background())
	if tok != "stored-token" {
		t.Errorf("token = %q, want stored-token", tok)
	}
	if n := auth.validateCalls.Load(); n != 0 {
		t.Errorf("validate calls = %d, want 0", n)
	}
}

func TestGetValidToken_NoSession(t *testing.T) {
	auth := newAuthServer(t)
	m := NewManager(auth.srv.URL, &MemStore{}, testLogger())

	if tok := m.GetValidToken(context.Background()); tok != "" {
		t.Errorf("token = %q, want empty", tok)
	}
	if n := auth.validateCalls.Load(); n != 0 {
		t.Errorf("validate calls = %d, want 0", n)
	}
}

func TestGetValidToken_MissingIssuedAt_DiscardsSession(t *testing.T) {
	auth := newAuthServer(t)
	store := &MemStore{Sess: &model.Session{
		Token: "stored-token",
		User:  &model.User{ID: 1},
	}}
	m := NewManager(auth.srv.URL, store, testLogger())

	if tok := m.GetValidToken(context.Background()); tok != "" {
		t.Errorf("token = %q, want empty for corrupt session", tok)
	}
	if store.Sess != nil {
		t.Error("corrupt session should have been cleared from the store")
	}
	if m.IsAuthenticated() {
		t.Error("IsAuthenticated() should be false after discard")
	}
}

func TestGetValidToken_OldToken_ExactlyOneRevalidation(t *testing.T) {
	auth := newAuthServer(t)
	store := &MemStore{Sess: storedSession(6*24*time.Hour+time.Minute, 5*time.Minute)}
	m := NewManager(auth.srv.URL, store, testLogger())

	tok := m.GetValidToken(context.Background())
	if tok != "stored-token" {
		t.Errorf("token = %q, want stored-token (no rotation)", tok)
	}
	if n := auth.validateCalls.Load(); n != 1 {
		t.Errorf("validate calls = %d, want exactly 1", n)
	}
}

func TestGetValidToken_OldToken_FailedRevalidationDestroysSession(t *testing.T) {
	auth := newAuthServer(t)
	auth.validateOK.Store(false)
	store := &MemStore{Sess: storedSession(6*24*time.Hour+time.Minute, 5*time.Minute)}
	m := NewManager(auth.srv.URL, store, testLogger())

	if tok := m.GetValidToken(context.Background()); tok != "" {
		t.Errorf("token = %q, want empty after failed revalidation", tok)
	}
	if m.IsAuthenticated() {
		t.Error("IsAuthenticated() must be false after failed revalidation")
	}
}

func TestGetValidToken_StaleValidation_Revalidates(t *testing.T) {
	auth := newAuthServer(t)
	store := &MemStore{Sess: storedSession(24*time.Hour, 2*time.Hour)}
	m := NewManager(auth.srv.URL, store, testLogger())

	tok := m.GetValidToken(context.Background())
	if tok != "stored-token" {
		t.Errorf("token = %q", tok)
	}
	if n := auth.validateCalls.Load(); n != 1 {
		t.Errorf("validate calls = %d, want 1", n)
	}
	if !store.Sess.ValidatedWithin(time.Minute, time.Now()) {
		t.Error("LastValidatedAt should have been refreshed and persisted")
	}

	// A second request inside the validation window is served from cache.
	_ = m.GetValidToken(context.Background())
	if n := auth.validateCalls.Load(); n != 1 {
		t.Errorf("validate calls after cached request = %d, want still 1", n)
	}
}

func TestGetValidToken_NeverValidated_Validates(t *testing.T) {
	auth := newAuthServer(t)
	store := &MemStore{Sess: storedSession(time.Hour, -1)}
	m := NewManager(auth.srv.URL, store, testLogger())

	if tok := m.GetValidToken(context.Background()); tok != "stored-token" {
		t.Errorf("token = %q", tok)
	}
	if n := auth.validateCalls.Load(); n != 1 {
		t.Errorf("validate calls = %d, want 1", n)
	}
}

func TestLogin_Success(t *testing.T) {
	auth := newAuthServer(t)
	store := &MemStore{}
	m := NewManager(auth.srv.URL, store, testLogger())

	sess, err := m.Login(context.Background(), "alice", "correct")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !sess.Valid() {
		t.Fatal("expected a valid session")
	}
	if sess.IssuedAt.IsZero() {
		t.Error("IssuedAt must be set at login")
	}
	if !m.IsAuthenticated() {
		t.Error("IsAuthenticated() should be true after login")
	}
	if store.Sess == nil {
		t.Error("session should have been persisted")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	auth := newAuthServer(t)
	m := NewManager(auth.srv.URL, &MemStore{}, testLogger())

	_, err := m.Login(context.Background(), "alice", "wrong")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrForbidden {
		t.Errorf("Code = %q, want FORBIDDEN", apiErr.Code)
	}
	if apiErr.Message != "Unknown username or bad password." {
		t.Errorf("Message = %q, want the server message verbatim", apiErr.Message)
	}
	if m.IsAuthenticated() {
		t.Error("no session should exist after a failed login")
	}
}

type failingProfileFetcher struct{}

func (failingProfileFetcher) FetchProfile(ctx context.Context, token string) (*model.User, error) {
	return nil, errors.New("profile endpoint unreachable")
}

func TestLogin_ProfileFetchFails_DegradedSnapshot(t *testing.T) {
	auth := newAuthServer(t)
	m := NewManager(auth.srv.URL, &MemStore{}, testLogger())
	m.SetProfileFetcher(failingProfileFetcher{})

	sess, err := m.Login(context.Background(), "alice", "correct")
	if err != nil {
		t.Fatalf("Login should survive a failed profile fetch: %v", err)
	}
	if !m.IsAuthenticated() {
		t.Error("IsAuthenticated() should be true")
	}
	// The token response carries no display name, so it falls back to the
	// nicename.
	if sess.User.DisplayName != "alice" {
		t.Errorf("DisplayName = %q, want nicename fallback %q", sess.User.DisplayName, "alice")
	}
	if !sess.User.Capabilities["read"] {
		t.Error("degraded profile should carry the default capability set")
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	auth := newAuthServer(t)
	store := &MemStore{Sess: storedSession(time.Hour, time.Minute)}
	m := NewManager(auth.srv.URL, store, testLogger())

	var expired bool
	m.OnSessionExpired(func() { expired = true })

	m.Logout()
	if m.IsAuthenticated() {
		t.Error("IsAuthenticated() should be false after logout")
	}
	if store.Sess != nil {
		t.Error("store should be cleared")
	}
	if expired {
		t.Error("explicit logout must not fire the expiry event")
	}
}

func TestInvalidate_FiresExpiryEvent(t *testing.T) {
	auth := newAuthServer(t)
	store := &MemStore{Sess: storedSession(time.Hour, time.Minute)}
	m := NewManager(auth.srv.URL, store, testLogger())

	var events int
	m.OnSessionExpired(func() { events++ })

	m.Invalidate()
	if m.IsAuthenticated() {
		t.Error("IsAuthenticated() should be false after Invalidate")
	}
	if events != 1 {
		t.Errorf("expiry events = %d, want 1", events)
	}

	// Idempotent: a second invalidation of an absent session is silent.
	m.Invalidate()
	if events != 1 {
		t.Errorf("expiry events after repeat = %d, want still 1", events)
	}
}
