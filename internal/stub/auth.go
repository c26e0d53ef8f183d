package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// tokenLifetime matches the production issuer's seven-day tokens.
const tokenLifetime = 7 * 24 * time.Hour

type stubUser struct {
	ID       int
	Username string
	Password string
	Name     string
	Email    string
	Roles    []string
}

type ctxKey int

const userKey ctxKey = 0

func (s *Server) issueToken(u *stubUser, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss": "reportkit-stub",
		"sub": strconv.Itoa(u.ID),
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) parseToken(raw string) (*stubUser, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("token has no subject: %w", err)
	}
	id, err := strconv.Atoi(sub)
	if err != nil {
		return nil, fmt.Errorf("bad subject %q: %w", sub, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("token subject %d no longer exists", id)
	}
	return u, nil
}

// authenticate resolves the bearer token to a user and stores it on the
// request context. Requests without a valid token are rejected the way
// the JWT auth plugin rejects them.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			wpError(w, http.StatusUnauthorized, "jwt_auth_no_auth_header", "Authorization header not found.")
			return
		}
		u, err := s.parseToken(raw)
		if err != nil {
			wpError(w, http.StatusUnauthorized, "jwt_auth_invalid_token", "Signature verification failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

func requestUser(r *http.Request) *stubUser {
	u, _ := r.Context().Value(userKey).(*stubUser)
	return u
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		wpError(w, http.StatusBadRequest, "rest_invalid_json", "Invalid request body.")
		return
	}

	s.mu.Lock()
	var match *stubUser
	for _, u := range s.users {
		if u.Username == creds.Username {
			match = u
			break
		}
	}
	s.mu.Unlock()

	if match == nil || match.Password != creds.Password {
		wpError(w, http.StatusForbidden, "jwt_auth_failed",
			"Error: The password you entered for the username "+creds.Username+" is incorrect.")
		return
	}

	token, err := s.issueToken(match, time.Now())
	if err != nil {
		wpError(w, http.StatusInternalServerError, "jwt_auth_sign_failed", "Could not sign token.")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"token":             token,
		"user_email":        match.Email,
		"user_nicename":     match.Username,
		"user_display_name": match.Name,
	})
}

func (s *Server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		wpError(w, http.StatusUnauthorized, "jwt_auth_no_auth_header", "Authorization header not found.")
		return
	}
	if _, err := s.parseToken(raw); err != nil {
		wpError(w, http.StatusUnauthorized, "jwt_auth_invalid_token", "Signature verification failed")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"code": "jwt_auth_valid_token",
		"data": map[string]any{"status": http.StatusOK},
	})
}

func userJSON(u *stubUser) map[string]any {
	caps := map[string]bool{"read": true}
	for _, role := range u.Roles {
		if role == "administrator" {
			caps["edit_posts"] = true
			caps["manage_options"] = true
		}
	}
	return map[string]any{
		"id":           u.ID,
		"username":     u.Username,
		"slug":         u.Username,
		"name":         u.Name,
		"email":        u.Email,
		"roles":        u.Roles,
		"capabilities": caps,
		"avatar_urls": map[string]string{
			"96": "https://avatars.example.test/" + u.Username + "?s=96",
		},
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, userJSON(requestUser(r)))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string   `json:"username"`
		Email    string   `json:"email"`
		Password string   `json:"password"`
		Name     string   `json:"name"`
		Roles    []string `json:"roles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Username == "" || in.Email == "" {
		wpError(w, http.StatusBadRequest, "rest_missing_callback_param", "Missing parameter(s): username, email")
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.Username == in.Username {
			s.mu.Unlock()
			wpError(w, http.StatusBadRequest, "existing_user_login", "Sorry, that username already exists!")
			return
		}
	}
	u := &stubUser{
		ID:       s.allocID(),
		Username: in.Username,
		Password: in.Password,
		Name:     in.Name,
		Email:    in.Email,
		Roles:    in.Roles,
	}
	if u.Name == "" {
		u.Name = u.Username
	}
	if len(u.Roles) == 0 {
		u.Roles = []string{"subscriber"}
	}
	s.users[u.ID] = u
	s.mu.Unlock()

	respond(w, http.StatusCreated, userJSON(u))
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		wpError(w, http.StatusBadRequest, "rest_invalid_param", "Invalid user ID.")
		return
	}

	s.mu.Lock()
	_, ok := s.users[id]
	s.mu.Unlock()
	if !ok {
		wpError(w, http.StatusNotFound, "rest_user_invalid_id", "Invalid user ID.")
		return
	}

	s.logger.Info("welcome notification sent", "user_id", id)
	respond(w, http.StatusOK, map[string]any{"sent": true})
}
