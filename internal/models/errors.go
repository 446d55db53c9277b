package models

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNonContiguous   = errors.New("selected slots must be next to each other")
	ErrTooLong         = fmt.Errorf("a booking can be at most %d hours long", MaxSelectionSlots)
	ErrBookingConflict = errors.New("the selected time was just booked by someone else, refresh and try again")
	ErrAuthExpired     = errors.New("session expired, please sign in again")
	ErrNetwork         = errors.New("network error")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("not allowed")
)

// DataError reports malformed data received from the backend or the user,
// such as an unparseable time string.
type DataError struct {
	Field string
	Value string
	Err   error
}

func (e *DataError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the caller may retry the same operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrBookingConflict)
}

// StatusFor maps the error taxonomy onto HTTP statuses for API responses.
func StatusFor(err error) int {
	var dataErr *DataError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNonContiguous), errors.Is(err, ErrTooLong):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrBookingConflict):
		return http.StatusConflict
	case errors.Is(err, ErrAuthExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNetwork):
		return http.StatusServiceUnavailable
	case errors.As(err, &dataErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
