package domain

import "time"

// Session is the caller identity every backend call runs under. It is built
// per request by the session middleware and passed explicitly; nothing reads
// tokens from ambient state.
type Session struct {
	ID           string    `json:"sid"`
	AccessToken  string    `json:"access"`
	RefreshToken string    `json:"refresh,omitempty"`
	UserID       string    `json:"uid,omitempty"`
	Email        string    `json:"email,omitempty"`
	ExpiresAt    time.Time `json:"-"`
	// UserVerified is set when UserID came from the backend (login or refresh
	// response) or from this service's signed cookie. A user_id read from a
	// raw bearer token is display-only.
	UserVerified bool `json:"-"`
}

// Owner is the key that scopes per-caller state such as cached results and
// rate limits. Only a verified user id is shared across sessions.
func (s *Session) Owner() string {
	if s.UserVerified && s.UserID != "" {
		return "u:" + s.UserID
	}
	return "s:" + s.ID
}

func (s *Session) Authenticated() bool {
	return s != nil && s.AccessToken != ""
}

// Expired reports whether the backend access token is past its expiry.
// A zero ExpiresAt means unknown and is treated as still valid.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
