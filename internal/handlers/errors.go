package handlers

import (
	"errors"
	"net/http"

	"productivityTracker/internal/logger"
	"productivityTracker/internal/service"

	"go.uber.org/zap"
)

const (
	codeInternal             = "INTERNAL_ERROR"
	codeBadRequest           = "BAD_REQUEST"
	codeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	codeUnauthorized         = "UNAUTHORIZED"
)

// handleError writes the response for a service failure. Business errors keep
// their code; everything else is a 500 with a generic message.
func handleError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		logger.Warn("HTTP: business error",
			zap.String("operation", operation),
			zap.String("error_code", businessErr.Code),
			zap.String("message", businessErr.Message),
			zap.Int("http_status", statusCode))

		responseWithError(w, r, statusCode, businessErr.Code, businessErr.Message, businessErr.Details)
		return
	}

	logger.Error("HTTP: service error", err,
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))

	responseWithError(w, r, http.StatusInternalServerError, codeInternal, "internal server error", nil)
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodeValidationError:
		return http.StatusBadRequest
	case service.CodeInvalidState:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
