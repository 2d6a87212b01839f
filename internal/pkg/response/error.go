package response

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/apperror"
)

// LoggerKey is the gin context key under which the request middleware stores its logger.
const LoggerKey = "logger"

// requestLogger returns the request-scoped logger, or the process default when no middleware set one.
func requestLogger(c *gin.Context) *slog.Logger {
	if l, ok := c.Get(LoggerKey); ok {
		if logger, ok := l.(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}

// Envelope is the JSON shape shared by every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// OK sends a success envelope with the given status code.
func OK(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Envelope{Success: true, Data: data, Message: message})
}

// Fail sends a failure envelope without consulting an error value.
func Fail(c *gin.Context, code int, reason, message string) {
	c.JSON(code, Envelope{Success: false, Message: message, Error: reason})
}

// Error sends a JSON error envelope.
// It checks if the error is an AppError to determine the status code.
// If it's not an AppError, it defaults to 500 Internal Server Error.
func Error(c *gin.Context, err error) {
	if appErr, ok := apperror.As(err); ok {
		if appErr.Code >= http.StatusInternalServerError || appErr.Kind == apperror.KindPayout {
			requestLogger(c).ErrorContext(c.Request.Context(), "request failed",
				"path", c.FullPath(), "reason", appErr.Reason, "error", err)
		}
		reason := appErr.Reason
		if reason == "" {
			reason = string(appErr.Kind)
		}
		c.JSON(appErr.Code, Envelope{Success: false, Message: appErr.Message, Error: reason})
		return
	}

	requestLogger(c).ErrorContext(c.Request.Context(), "unhandled error", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, Envelope{
		Success: false,
		Message: "internal server error",
		Error:   string(apperror.KindInternal),
	})
}
