package backend

import (
	"context"
	"net/http"

	"career-gap-web/internal/domain"
)

type AuthRepository struct {
	c *Client
}

func NewAuthRepository(c *Client) *AuthRepository {
	return &AuthRepository{c: c}
}

func (r *AuthRepository) Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenPair, error) {
	var pair domain.TokenPair
	if err := r.c.do(ctx, r.c.http, nil, http.MethodPost, pathLogin, req, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Register creates the account. The backend issues no tokens here; the user
// logs in afterwards.
func (r *AuthRepository) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	var user domain.User
	if err := r.c.do(ctx, r.c.http, nil, http.MethodPost, pathRegister, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *AuthRepository) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	var pair domain.TokenPair
	body := map[string]string{"refresh": refreshToken}
	if err := r.c.do(ctx, r.c.http, nil, http.MethodPost, pathRefresh, body, &pair); err != nil {
		return nil, err
	}
	if pair.Refresh == "" {
		// rotation disabled, the old refresh token stays valid
		pair.Refresh = refreshToken
	}
	return &pair, nil
}

func (r *AuthRepository) CurrentUser(ctx context.Context, sess *domain.Session) (*domain.User, error) {
	var user domain.User
	if err := r.c.do(ctx, r.c.http, sess, http.MethodGet, pathMe, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
