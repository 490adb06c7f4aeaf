package clock

import "errors"

// Clock domain errors
var (
	// Time entry consistency errors
	ErrAlreadyClockedIn = errors.New("you are already clocked in on this job")
	ErrNoOpenTimeEntry  = errors.New("no open time entry for this job")

	// Location errors
	ErrStaleLocation = errors.New("location fix is too old, acquire a new one")

	// Override errors
	ErrEventNotFound           = errors.New("clock event not found")
	ErrNotBlocked              = errors.New("only blocked clock events can be overridden")
	ErrOverrideNotAllowed      = errors.New("override is not allowed for this clock event")
	ErrAlreadyOverridden       = errors.New("clock event has already been overridden")
	ErrStaleAttempt            = errors.New("blocked attempt is too old to override, clock again")
	ErrOverrideReasonRequired  = errors.New("override reason is required")
	ErrOverridePhotoRequired   = errors.New("override photo is required")
	ErrNotOverride             = errors.New("only override events can be approved")
	ErrOverrideAlreadyApproved = errors.New("override has already been approved")
	ErrCannotApproveOwn        = errors.New("you cannot approve your own override")

	// General errors
	ErrUnauthorized = errors.New("unauthorized to access this clock event")
)
