// Package apperr defines the error taxonomy shared by the services, the
// handlers, and the client mirror. Every failure a user can recover from is
// classified under one of these sentinels; handlers translate them to HTTP
// statuses and a single human-readable message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks empty or malformed required input.
	ErrValidation = errors.New("validation failed")
	// ErrLocation marks a missing or unusable device position.
	ErrLocation = errors.New("location unavailable")
	// ErrGeocode marks a geocoding lookup that produced no usable match.
	ErrGeocode = errors.New("address not found")
	// ErrRemote marks a store operation that was rejected, uniformly:
	// callers cannot distinguish a missing row from any other store failure.
	ErrRemote = errors.New("store operation failed")
	// ErrAuth marks a rejected sign-in, sign-up, or privilege check.
	ErrAuth = errors.New("authentication failed")
)

// Validationf wraps ErrValidation with a caller-facing reason.
func Validationf(format string, args ...interface{}) error {
	return wrapf(ErrValidation, format, args...)
}

// Locationf wraps ErrLocation with a caller-facing reason.
func Locationf(format string, args ...interface{}) error {
	return wrapf(ErrLocation, format, args...)
}

// Geocodef wraps ErrGeocode with a caller-facing reason.
func Geocodef(format string, args ...interface{}) error {
	return wrapf(ErrGeocode, format, args...)
}

// Remotef wraps ErrRemote with a caller-facing reason.
func Remotef(format string, args ...interface{}) error {
	return wrapf(ErrRemote, format, args...)
}

// Authf wraps ErrAuth with a provider-reported reason.
func Authf(format string, args ...interface{}) error {
	return wrapf(ErrAuth, format, args...)
}

func wrapf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// HTTPStatus maps a classified error to the status its handler should
// write. Unclassified errors are treated as store failures.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrLocation), errors.Is(err, ErrGeocode):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
