package handlers

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	apperrors "agrostat/server/errors"
	"agrostat/server/middleware"
)

// ErrorResponse структура ошибки
type ErrorResponse struct {
	Error     bool   `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// SendJSONError отправляет JSON ошибку и логирует её
func SendJSONError(c *gin.Context, statusCode int, message string) {
	reqID := middleware.GetRequestIDFromGin(c)

	slog.Error("Gin HTTP error",
		"error", message,
		"status_code", statusCode,
		"request_id", reqID,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)

	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:     true,
		Message:   message,
		RequestID: reqID,
	})
}

// SendAppError отправляет ошибку приложения; прочие ошибки считаются внутренними
func SendAppError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewInternalError("unexpected error", err)
	}
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
}

// SendJSONResponse отправляет JSON ответ
func SendJSONResponse(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, data)
}
