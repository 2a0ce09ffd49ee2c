package v1

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"career-gap-web/internal/delivery/http/middleware"
	"career-gap-web/internal/delivery/http/response"
	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"
	"career-gap-web/pkg/security"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUC  domain.AuthUsecase
	session middleware.SessionConfig
	tracker *security.LoginTracker
}

type LoginResponse struct {
	User      *domain.User `json:"user"`
	ExpiresAt *time.Time   `json:"access_expires_at,omitempty"`
}

func NewAuthHandler(public *gin.RouterGroup, protected *gin.RouterGroup, authUC domain.AuthUsecase, sessionCfg middleware.SessionConfig, tracker *security.LoginTracker, loginLimit gin.HandlerFunc) {
	handler := &AuthHandler{authUC: authUC, session: sessionCfg, tracker: tracker}

	publicAuth := public.Group("/auth")
	{
		publicAuth.POST("/login", loginLimit, handler.Login)
		publicAuth.POST("/register", loginLimit, handler.Register)
		publicAuth.POST("/logout", handler.Logout)
	}

	protectedAuth := protected.Group("/auth")
	{
		protectedAuth.POST("/refresh", handler.Refresh)
		protectedAuth.GET("/me", handler.Me)
	}
}

// Login godoc
// @Summary      Log in
// @Description  Authenticates against the backend and stores the tokens in the session cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        login  body      domain.LoginRequest  true  "Credentials"
// @Success      200    {object}  response.Response{data=LoginResponse}
// @Failure      400    {object}  response.Response
// @Failure      401    {object}  response.Response
// @Failure      429    {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	ctx := c.Request.Context()
	if left, blocked := h.tracker.Blocked(ctx, req.Email); blocked {
		minutes := int(math.Ceil(left.Minutes()))
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(left.Seconds()))))
		c.Error(apperror.TooManyRequests(fmt.Sprintf("Too many failed login attempts. Try again in %d minutes.", minutes)))
		return
	}

	sess, user, err := h.authUC.Login(ctx, &req)
	if err != nil {
		if appErr, ok := apperror.As(err); ok && appErr.Code == http.StatusUnauthorized {
			h.tracker.RecordFailure(ctx, req.Email)
		}
		c.Error(err)
		return
	}
	h.tracker.Clear(ctx, req.Email)
	if err := middleware.WriteSessionCookie(c, h.session, sess); err != nil {
		c.Error(err)
		return
	}

	out := LoginResponse{User: user}
	if !sess.ExpiresAt.IsZero() {
		out.ExpiresAt = &sess.ExpiresAt
	}
	response.Success(c, http.StatusOK, "Login successful", out)
}

// Register godoc
// @Summary      Register
// @Description  Creates an account on the backend. Does not log the user in.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        register  body      domain.RegisterRequest  true  "Registration details"
// @Success      201       {object}  response.Response{data=domain.User}
// @Failure      400       {object}  response.Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	user, err := h.authUC.Register(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Registration successful. Please log in.", user)
}

// Refresh godoc
// @Summary      Refresh the session
// @Description  Exchanges the stored refresh token for a new access token
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	sess, err := h.authUC.Refresh(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		middleware.ClearSessionCookie(c, h.session.Secure)
		c.Error(err)
		return
	}
	if err := middleware.WriteSessionCookie(c, h.session, sess); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Session refreshed", nil)
}

// Logout godoc
// @Summary      Log out
// @Description  Cancels any running analysis and clears the session cookie
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.authUC.Logout(c.Request.Context(), middleware.SessionFrom(c))
	middleware.ClearSessionCookie(c, h.session.Secure)
	response.Success(c, http.StatusOK, "Logged out", nil)
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.User}
// @Failure      401  {object}  response.Response
// @Router       /auth/me [get]
// @Security     BearerAuth
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authUC.CurrentUser(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Current user", user)
}
