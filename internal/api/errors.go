package api

import (
	"errors"
	"net/http"

	"guild-loot/internal/command"
	"guild-loot/internal/service"
)

// statusFor maps engine and dispatcher errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, command.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, command.ErrUnknownCommand), errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateItem), errors.Is(err, service.ErrDuplicateMember):
		return http.StatusConflict
	case errors.Is(err, service.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, command.ErrMissingOption), errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
