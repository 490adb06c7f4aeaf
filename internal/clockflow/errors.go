package clockflow

import "errors"

var (
	ErrInvalidTransition   = errors.New("event not accepted in current state")
	ErrAttemptCommitted    = errors.New("attempt is being validated and can no longer be cancelled")
	ErrOverrideUnavailable = errors.New("override is not available for this attempt")

	// Sensor errors reported by a LocationProvider. None of them reaches the server.
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrLocationTimeout     = errors.New("location request timed out")
)
