package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/me/reportkit/pkg/model"
)

// Revalidation policy constants. The 7-day lifetime matches what the token
// issuer grants; the 6-day and 1-hour thresholds are product constants
// carried over unchanged.
const (
	TokenLifetime   = 7 * 24 * time.Hour
	RevalidateAfter = 6 * 24 * time.Hour
	ValidateEvery   = 1 * time.Hour
)

// tokenResponse is the token-issuing endpoint's payload.
type tokenResponse struct {
	Token           string `json:"token"`
	UserEmail       string `json:"user_email"`
	UserNicename    string `json:"user_nicename"`
	UserDisplayName string `json:"user_display_name"`
}

// ProfileFetcher retrieves the full user profile with an explicit token.
// It is called once right after login, before the session exists, so it
// must not route through the session manager itself.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, token string) (*model.User, error)
}

// Manager owns the session. It decides, for every outgoing authorized
// call, whether the held token may be used as-is, must be revalidated
// first, or must be discarded. All revalidation failures are fail-closed:
// the session is destroyed and callers see no token.
type Manager struct {
	authURL    string // base URL of the token endpoints, e.g. https://blog.example.com/wp-json/jwt-auth/v1
	store      Store
	httpClient *http.Client
	logger     *slog.Logger
	profiles   ProfileFetcher

	mu        sync.Mutex
	sess      *model.Session
	loaded    bool
	onExpired []func()
}

// NewManager creates a session manager talking to the token endpoints under
// authURL and persisting through store.
func NewManager(authURL string, store Store, logger *slog.Logger) *Manager {
	return &Manager{
		authURL:    authURL,
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("component", "session"),
	}
}

// SetProfileFetcher installs the profile fetcher used after login. It is a
// setter rather than a constructor argument because the content client that
// implements it depends on the manager for its own token injection.
func (m *Manager) SetProfileFetcher(pf ProfileFetcher) {
	m.profiles = pf
}

// OnSessionExpired registers a callback fired whenever the session is
// destroyed involuntarily (revalidation failure or a 401 on any authorized
// call). Explicit Logout does not fire it.
func (m *Manager) OnSessionExpired(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpired = append(m.onExpired, fn)
}

// Login exchanges credentials for a token and builds the session. The full
// profile is fetched with the new token; if that secondary fetch fails the
// session is still created from the token response with a minimal user
// snapshot and default capabilities.
func (m *Manager) Login(ctx context.Context, username, password string) (*model.Session, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authURL+"/token", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, model.NewNetworkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewNetworkError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, model.ErrorFromResponse(resp.StatusCode, resp.Status, respBody)
	}

	var tr tokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	if tr.Token == "" {
		return nil, model.ErrorFromResponse(resp.StatusCode, resp.Status, respBody)
	}

	now := time.Now()
	issuedAt := now
	if iat, ok := issuedAtFromToken(tr.Token); ok {
		issuedAt = iat
	}

	user := m.fetchProfileOrFallback(ctx, tr)

	sess := &model.Session{
		Token:    tr.Token,
		IssuedAt: issuedAt,
		User:     user,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Save(sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	m.sess = sess
	m.loaded = true

	m.logger.Info("logged in", "username", user.Username)
	return sess, nil
}

// fetchProfileOrFallback tries the full profile fetch and degrades to a
// snapshot built from the token response. Availability wins over
// completeness here: a blog author can still work with a minimal profile.
func (m *Manager) fetchProfileOrFallback(ctx context.Context, tr tokenResponse) *model.User {
	if m.profiles != nil {
		user, err := m.profiles.FetchProfile(ctx, tr.Token)
		if err == nil && user != nil {
			return user
		}
		m.logger.Warn("profile fetch failed, using token response snapshot", "error", err)
	}

	displayName := tr.UserDisplayName
	if displayName == "" {
		displayName = tr.UserNicename
	}
	return &model.User{
		Username:     tr.UserNicename,
		DisplayName:  displayName,
		Email:        tr.UserEmail,
		Capabilities: model.DefaultCapabilities(),
	}
}

// GetValidToken returns a token usable for an authorized call, or "" when
// no usable session exists. The policy, in order:
//
//  1. no stored session: ""
//  2. no issue timestamp: corrupt, discard, ""
//  3. older than RevalidateAfter: one revalidation round-trip; failure
//     discards the session, success returns the token unchanged
//  4. last successful validation older than ValidateEvery: one lightweight
//     validation call, same failure semantics
//  5. otherwise the cached token, with zero network calls
func (m *Manager) GetValidToken(ctx context.Context) string {
	m.mu.Lock()
	sess := m.currentLocked()
	if !sess.Valid() {
		m.mu.Unlock()
		return ""
	}
	if sess.IssuedAt.IsZero() {
		m.logger.Warn("session has no issue timestamp, discarding")
		m.discardLocked()
		m.mu.Unlock()
		return ""
	}

	now := time.Now()
	token := sess.Token
	needsValidation := sess.Age(now) > RevalidateAfter || !sess.ValidatedWithin(ValidateEvery, now)
	m.mu.Unlock()

	if !needsValidation {
		return token
	}

	err := m.validate(ctx, token)

	m.mu.Lock()
	defer m.mu.Unlock()
	// The session may have been discarded while the round-trip was in
	// flight; a stale result must not resurrect it.
	if m.sess == nil || m.sess.Token != token {
		return ""
	}
	if err != nil {
		m.logger.Warn("token revalidation failed, discarding session", "error", err)
		m.discardLocked()
		return ""
	}
	m.sess.LastValidatedAt = time.Now()
	if err := m.store.Save(m.sess); err != nil {
		m.logger.Warn("persisting validated session failed", "error", err)
	}
	return token
}

// validate performs the lightweight validation round-trip.
func (m *Manager) validate(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authURL+"/token/validate", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return model.ErrorFromResponse(resp.StatusCode, resp.Status, body)
	}
	return nil
}

// IsAuthenticated reports whether a session with both token and user is
// held. It never touches the network.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked().Valid()
}

// Session returns the current session, or nil. Callers must not mutate it.
func (m *Manager) Session() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked()
}

// Logout clears the session synchronously and unconditionally. It never
// fails and does not fire the expiry event.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("clearing session store failed", "error", err)
	}
	m.sess = nil
	m.loaded = true
}

// Invalidate destroys the session in response to an auth failure observed
// elsewhere (a 401 on any authorized call) and fires the expiry event.
// Invalidating an absent session is a no-op.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentLocked() == nil {
		return
	}
	m.discardLocked()
}

// currentLocked returns the cached session, loading it from the store on
// first use. Store read errors are treated as no session.
func (m *Manager) currentLocked() *model.Session {
	if !m.loaded {
		sess, err := m.store.Load()
		if err != nil {
			m.logger.Warn("loading session failed", "error", err)
			sess = nil
		}
		m.sess = sess
		m.loaded = true
	}
	return m.sess
}

// discardLocked destroys the session and notifies subscribers. Discarding
// is monotonic: once gone, only a fresh Login brings a session back.
func (m *Manager) discardLocked() {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("clearing session store failed", "error", err)
	}
	m.sess = nil
	m.loaded = true
	for _, fn := range m.onExpired {
		fn()
	}
}

// issuedAtFromToken peeks at the iat claim of a JWT without verifying the
// signature. The client has no key material; the timestamp is advisory and
// only replaces the local clock when present.
func issuedAtFromToken(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return time.Time{}, false
	}
	return iat.Time, true
}
