package http

import (
	"errors"
	"net/http"

	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/domain"
)

// errorCode maps domain errors to wire codes and HTTP statuses so both the
// websocket and REST surfaces speak the same taxonomy.
func errorCode(err error) (string, int) {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden", http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalidTransition", http.StatusConflict
	case errors.Is(err, domain.ErrDuplicateAnswer):
		return "duplicateAnswer", http.StatusConflict
	case errors.Is(err, domain.ErrStaleQuestion):
		return "staleQuestion", http.StatusConflict
	case errors.Is(err, domain.ErrSessionEnded):
		return "sessionEnded", http.StatusGone
	case errors.Is(err, domain.ErrNotFound):
		return "notFound", http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return "validationError", http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return "conflict", http.StatusConflict
	}
	return "internal", http.StatusInternalServerError
}
