package geofence

import "errors"

// Geofence domain errors
var (
	ErrJobNotFound              = errors.New("job not found")
	ErrExpansionNotInFuture     = errors.New("expansion must end in the future")
	ErrExpansionWindowTooLong   = errors.New("expansion exceeds the maximum allowed window")
	ErrExpansionBelowBaseRadius = errors.New("expanded radius must be larger than the base radius")
)
