package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"
	"career-gap-web/pkg/logger"
	"career-gap-web/pkg/session"

	"github.com/go-playground/validator/v10"
)

// SessionCloser releases per-session resources on logout.
type SessionCloser interface {
	CancelAll(sess *domain.Session)
}

type authUsecase struct {
	repo     domain.AuthRepository
	codec    *session.Codec
	closer   SessionCloser
	validate *validator.Validate
}

func NewAuthUsecase(repo domain.AuthRepository, codec *session.Codec, closer SessionCloser, validate *validator.Validate) domain.AuthUsecase {
	return &authUsecase{repo: repo, codec: codec, closer: closer, validate: validate}
}

func (u *authUsecase) Login(ctx context.Context, req *domain.LoginRequest) (*domain.Session, *domain.User, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validateStruct(u.validate, req); err != nil {
		return nil, nil, err
	}

	pair, err := u.repo.Login(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if pair.Access == "" {
		return nil, nil, apperror.Backend(http.StatusBadGateway, "Login succeeded but no access token was issued")
	}

	sess := u.codec.New(pair.Access, pair.Refresh, req.Email)
	logger.Log.Info("User logged in",
		slog.String("session_id", sess.ID),
		slog.String("user_id", sess.UserID))
	return sess, pair.User, nil
}

func (u *authUsecase) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := validateStruct(u.validate, req); err != nil {
		return nil, err
	}
	return u.repo.Register(ctx, req)
}

// Refresh exchanges the refresh token for a new access token. The session id
// is kept so an analysis running under it stays reachable.
func (u *authUsecase) Refresh(ctx context.Context, sess *domain.Session) (*domain.Session, error) {
	if sess == nil || sess.RefreshToken == "" {
		return nil, apperror.Unauthorized("Your session has expired. Please log in again.")
	}

	pair, err := u.repo.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		if appErr, ok := apperror.As(err); ok && (appErr.Code == http.StatusBadRequest || appErr.Code == http.StatusUnauthorized) {
			return nil, apperror.Unauthorized("Your session has expired. Please log in again.")
		}
		return nil, err
	}

	next := *sess
	next.AccessToken = pair.Access
	if pair.Refresh != "" {
		next.RefreshToken = pair.Refresh
	}
	if userID, exp, err := session.BackendClaims(pair.Access); err == nil {
		if userID != "" {
			next.UserID = userID
			next.UserVerified = true
		}
		next.ExpiresAt = exp
	}
	return &next, nil
}

func (u *authUsecase) Logout(_ context.Context, sess *domain.Session) {
	if sess == nil {
		return
	}
	if u.closer != nil {
		u.closer.CancelAll(sess)
	}
	logger.Log.Info("User logged out", slog.String("session_id", sess.ID))
}

func (u *authUsecase) CurrentUser(ctx context.Context, sess *domain.Session) (*domain.User, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return u.repo.CurrentUser(ctx, sess)
}
