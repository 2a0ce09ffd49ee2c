// Package session encodes the browser session cookie. The cookie is an
// HS256 JWT signed by this service that carries the backend token pair.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"career-gap-web/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const CookieName = "cg_session"

var ErrInvalid = errors.New("session: invalid or expired token")

type cookieClaims struct {
	jwt.RegisteredClaims
	Access  string `json:"acc"`
	Refresh string `json:"ref,omitempty"`
	Email   string `json:"email,omitempty"`
}

type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// New builds a session for a freshly issued backend token pair.
func (c *Codec) New(access, refresh, email string) *domain.Session {
	s := &domain.Session{
		ID:           uuid.NewString(),
		AccessToken:  access,
		RefreshToken: refresh,
		Email:        email,
	}
	if userID, exp, err := BackendClaims(access); err == nil {
		s.UserID = userID
		s.UserVerified = userID != ""
		s.ExpiresAt = exp
	}
	return s
}

func (c *Codec) Encode(s *domain.Session) (string, error) {
	if !s.Authenticated() {
		return "", errors.New("session: missing access token")
	}
	now := c.now()
	claims := cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Access:  s.AccessToken,
		Refresh: s.RefreshToken,
		Email:   s.Email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *Codec) Decode(raw string) (*domain.Session, error) {
	var claims cookieClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil || !token.Valid || claims.Access == "" || claims.ID == "" {
		return nil, ErrInvalid
	}

	s := &domain.Session{
		ID:           claims.ID,
		AccessToken:  claims.Access,
		RefreshToken: claims.Refresh,
		UserID:       claims.Subject,
		Email:        claims.Email,
	}
	if userID, exp, err := BackendClaims(claims.Access); err == nil {
		s.ExpiresAt = exp
		if s.UserID == "" {
			s.UserID = userID
		}
	}
	// the cookie is signed by us and only ever holds tokens the backend issued
	s.UserVerified = s.UserID != ""
	return s, nil
}

// FromBearer wraps a backend access token sent directly by an API client.
// The session id is derived from the token so repeated calls map to the same
// analysis slot. The token's user_id is unverified here, so the session is
// never marked as belonging to that user.
func FromBearer(access string) *domain.Session {
	sum := sha256.Sum256([]byte(access))
	s := &domain.Session{
		ID:          "bearer-" + hex.EncodeToString(sum[:8]),
		AccessToken: access,
	}
	if userID, exp, err := BackendClaims(access); err == nil {
		s.UserID = userID
		s.ExpiresAt = exp
	}
	return s
}

// BackendClaims reads user id and expiry from a backend access token. The
// signature is not checked; the backend verifies its own tokens on every call.
func BackendClaims(access string) (string, time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return "", time.Time{}, err
	}

	var userID string
	switch v := claims["user_id"].(type) {
	case string:
		userID = v
	case float64:
		userID = strconv.FormatInt(int64(v), 10)
	}

	var exp time.Time
	if e, err := claims.GetExpirationTime(); err == nil && e != nil {
		exp = e.Time
	}
	return userID, exp, nil
}
