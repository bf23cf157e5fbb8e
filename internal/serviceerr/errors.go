package serviceerr

import (
	"errors"
	"net/http"
)

var ErrNotFound = errors.New("not found")

// Failure classes of the session engine and the request gateway.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNetwork           = errors.New("network failure")
	ErrAuthRejected      = errors.New("authentication rejected")
	ErrServerFault       = errors.New("server fault")
	ErrCapabilityMissing = errors.New("capability not configured")
)

// ForStatus maps a non-success HTTP status code to its failure class.
func ForStatus(status int) error {
	switch {
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return ErrAuthRejected
	default:
		return ErrServerFault
	}
}
