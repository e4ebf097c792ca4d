package handlers

import (
	"errors"
	"net/http"

	"flashtriv/services"
)

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrGameNotFound),
		errors.Is(err, services.ErrSetNotFound),
		errors.Is(err, services.ErrCardNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrSetExhausted):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrTooManyGames):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
