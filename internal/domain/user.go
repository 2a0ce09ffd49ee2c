package domain

import (
	"context"
	"time"
)

type User struct {
	ID                          int64      `json:"id"`
	Username                    string     `json:"username"`
	Email                       string     `json:"email"`
	FirstName                   string     `json:"first_name"`
	LastName                    string     `json:"last_name"`
	PhoneNumber                 string     `json:"phone_number,omitempty"`
	EmailVerified               bool       `json:"email_verified"`
	ProfileCompleted            bool       `json:"profile_completed"`
	ProfileCompletionPercentage int        `json:"profile_completion_percentage"`
	LastActive                  *time.Time `json:"last_active,omitempty"`
	CreatedAt                   *time.Time `json:"created_at,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=150"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
}

// TokenPair is what the backend issues on login and refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user,omitempty"`
}

type AuthRepository interface {
	Login(ctx context.Context, req *LoginRequest) (*TokenPair, error)
	Register(ctx context.Context, req *RegisterRequest) (*User, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	CurrentUser(ctx context.Context, sess *Session) (*User, error)
}

type AuthUsecase interface {
	Login(ctx context.Context, req *LoginRequest) (*Session, *User, error)
	Register(ctx context.Context, req *RegisterRequest) (*User, error)
	Refresh(ctx context.Context, sess *Session) (*Session, error)
	Logout(ctx context.Context, sess *Session)
	CurrentUser(ctx context.Context, sess *Session) (*User, error)
}
