package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storybook-server/internal/domain"
)

// Коды ошибок API
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeNoStory     = "no_current_story"
	ErrCodeCanceled    = "canceled"
	ErrCodeInternal    = "internal_error"
	ErrCodeRateLimited = "rate_limited"
)

// ErrorResponse - стандартизированный ответ об ошибке.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func handleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	var statusCode int
	var errResp ErrorResponse

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		errResp = ErrorResponse{Code: ErrCodeBadRequest, Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = ErrorResponse{Code: ErrCodeNotFound, Message: err.Error()}
	case errors.Is(err, domain.ErrGenerationInProgress):
		statusCode = http.StatusConflict
		errResp = ErrorResponse{Code: ErrCodeConflict, Message: err.Error()}
	case errors.Is(err, domain.ErrNoCurrentStory):
		statusCode = http.StatusConflict
		errResp = ErrorResponse{Code: ErrCodeNoStory, Message: err.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// 499 - клиент закрыл соединение
		statusCode = 499
		errResp = ErrorResponse{Code: ErrCodeCanceled, Message: "request was canceled"}
	default:
		logger.Error("Unhandled internal error", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = ErrorResponse{Code: ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: msg})
}
