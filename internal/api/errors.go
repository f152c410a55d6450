package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"roomreserve/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	msgNotFound   = "Entity not found exception"
	msgBadRequest = "Bad request"
	msgInternal   = "Internal server error"
)

// statusFor maps domain errors to HTTP status codes and summary messages.
func statusFor(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidState),
		errors.As(err, &verrs):
		return http.StatusBadRequest, msgBadRequest
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	code, message := statusFor(err)

	event := logger.Warn()
	if code >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("request_id", RequestIDFromContext(r.Context())).
		Int("status", code).
		Msg("request failed")

	writeJSON(w, code, ErrorResponse{
		Message:         message,
		DetailedMessage: err.Error(),
		ErrorTime:       time.Now(),
	})
}

// validationError flattens validator output into one InvalidInput error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "isdefault":
			parts = append(parts, fmt.Sprintf("%s should be empty", fe.Field()))
		case "datetime":
			parts = append(parts, fmt.Sprintf("%s must be a date in format %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(parts, "; "))
}
