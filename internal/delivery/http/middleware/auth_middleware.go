package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"career-gap-web/internal/delivery/http/response"
	"career-gap-web/internal/domain"
	"career-gap-web/pkg/logger"
	"career-gap-web/pkg/session"

	"github.com/gin-gonic/gin"
)

// SessionConfig controls how the session cookie is read and written.
type SessionConfig struct {
	Codec  *session.Codec
	Secure bool
	Now    func() time.Time
}

// SessionMiddleware resolves the caller's session from a bearer token or the
// session cookie and refreshes an expired backend token once. It never aborts;
// RequireSession does that for protected routes.
func SessionMiddleware(cfg SessionConfig, authUC domain.AuthUsecase) gin.HandlerFunc {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return func(c *gin.Context) {
		var (
			sess       *domain.Session
			fromCookie bool
		)

		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			if token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); token != "" {
				sess = session.FromBearer(token)
			}
		} else if raw, err := c.Cookie(session.CookieName); err == nil && raw != "" {
			decoded, err := cfg.Codec.Decode(raw)
			if err != nil {
				ClearSessionCookie(c, cfg.Secure)
			} else {
				sess, fromCookie = decoded, true
			}
		}

		if sess != nil && sess.Expired(now()) && sess.RefreshToken != "" {
			refreshed, err := authUC.Refresh(c.Request.Context(), sess)
			if err != nil {
				logger.Log.Info("Session refresh failed",
					slog.String("session_id", sess.ID),
					slog.String("error", err.Error()))
				sess = nil
				if fromCookie {
					ClearSessionCookie(c, cfg.Secure)
				}
			} else {
				sess = refreshed
				if fromCookie {
					if err := WriteSessionCookie(c, cfg, sess); err != nil {
						logger.Log.Warn("Failed to rewrite session cookie", slog.String("error", err.Error()))
					}
				}
			}
		}

		if sess != nil {
			c.Set(string(domain.KeySession), sess)
			c.Set(string(domain.KeyUserID), sess.UserID)
			c.Set(string(domain.KeyUserEmail), sess.Email)
		}
		c.Next()
	}
}

// RequireSession rejects requests without an authenticated session.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !SessionFrom(c).Authenticated() {
			response.Error(c, http.StatusUnauthorized, "Please log in to continue", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// SessionFrom returns the session resolved for this request, or nil.
func SessionFrom(c *gin.Context) *domain.Session {
	v, ok := c.Get(string(domain.KeySession))
	if !ok {
		return nil
	}
	sess, _ := v.(*domain.Session)
	return sess
}

func WriteSessionCookie(c *gin.Context, cfg SessionConfig, sess *domain.Session) error {
	raw, err := cfg.Codec.Encode(sess)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, raw, int(cfg.Codec.TTL().Seconds()), "/", "", cfg.Secure, true)
	return nil
}

func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, "", -1, "/", "", secure, true)
}
