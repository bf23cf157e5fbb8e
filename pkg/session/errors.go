package session

import "github.com/openkcm/session-client/internal/serviceerr"

// Failure classes, to be matched with errors.Is.
var (
	ErrValidation        = serviceerr.ErrValidation
	ErrNetwork           = serviceerr.ErrNetwork
	ErrAuthRejected      = serviceerr.ErrAuthRejected
	ErrServerFault       = serviceerr.ErrServerFault
	ErrCapabilityMissing = serviceerr.ErrCapabilityMissing
)
