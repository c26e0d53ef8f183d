package model

import "time"

// Session represents an authenticated user session. A session is only
// considered valid when both the token and the user snapshot are present;
// one without the other is treated as corrupt state.
type Session struct {
	Token           string    `json:"token"`
	IssuedAt        time.Time `json:"issued_at"`
	LastValidatedAt time.Time `json:"last_validated_at,omitempty"` // zero = never validated
	User            *User     `json:"user"`
}

// Valid reports whether the session carries both a token and a user.
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && s.User != nil
}

// Age returns how long ago the token was issued.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.IssuedAt)
}

// ValidatedWithin reports whether a successful validation round-trip
// happened within d of now. A session that was never validated always
// reports false.
func (s *Session) ValidatedWithin(d time.Duration, now time.Time) bool {
	if s.LastValidatedAt.IsZero() {
		return false
	}
	return now.Sub(s.LastValidatedAt) <= d
}
