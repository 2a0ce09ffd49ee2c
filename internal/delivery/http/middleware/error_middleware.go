package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"career-gap-web/internal/delivery/http/response"
	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"
	"career-gap-web/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			if appErr.Code >= http.StatusInternalServerError {
				logger.Log.Error("Request failed",
					slog.String("request_id", c.GetString(string(domain.KeyRequestID))),
					slog.String("path", c.FullPath()),
					slog.Int("status", appErr.Code),
					slog.String("error", appErr.Error()))
			}
			var details interface{}
			if len(appErr.Details) > 0 {
				details = appErr.Details
			}
			response.Error(c, appErr.Code, appErr.Message, details)
			return
		}

		// never expose internal error details to clients
		logger.Log.Error("Internal server error",
			slog.String("request_id", c.GetString(string(domain.KeyRequestID))),
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()))
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
	}
}
