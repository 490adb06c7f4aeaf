package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, user.ErrInvalidToken),
		errors.Is(err, user.ErrUserIDRequired),
		errors.Is(err, user.ErrBusinessIDRequired):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrManagerAccessRequired):
		Forbidden(w, "Manager access required")
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, "Insufficient permissions")

	// Geofence domain errors
	case errors.Is(err, geofence.ErrJobNotFound):
		NotFound(w, "Job not found")
	case errors.Is(err, geofence.ErrExpansionNotInFuture),
		errors.Is(err, geofence.ErrExpansionWindowTooLong),
		errors.Is(err, geofence.ErrExpansionBelowBaseRadius):
		Error(w, http.StatusUnprocessableEntity, "INVALID_EXPANSION", err.Error())

	// Time entry consistency errors
	case errors.Is(err, clock.ErrAlreadyClockedIn):
		Error(w, http.StatusConflict, "ALREADY_CLOCKED_IN", err.Error())
	case errors.Is(err, clock.ErrNoOpenTimeEntry):
		Error(w, http.StatusConflict, "NO_OPEN_TIME_ENTRY", err.Error())

	// Location errors
	case errors.Is(err, clock.ErrStaleLocation):
		Error(w, http.StatusUnprocessableEntity, "STALE_LOCATION", err.Error())

	// Override errors
	case errors.Is(err, clock.ErrEventNotFound):
		NotFound(w, "Clock event not found")
	case errors.Is(err, clock.ErrUnauthorized),
		errors.Is(err, clock.ErrCannotApproveOwn):
		Forbidden(w, err.Error())
	case errors.Is(err, clock.ErrAlreadyOverridden):
		Error(w, http.StatusConflict, "ALREADY_OVERRIDDEN", err.Error())
	case errors.Is(err, clock.ErrOverrideAlreadyApproved):
		Error(w, http.StatusConflict, "ALREADY_APPROVED", err.Error())
	case errors.Is(err, clock.ErrStaleAttempt):
		Error(w, http.StatusConflict, "STALE_ATTEMPT", err.Error())
	case errors.Is(err, clock.ErrNotBlocked),
		errors.Is(err, clock.ErrOverrideNotAllowed),
		errors.Is(err, clock.ErrNotOverride):
		Error(w, http.StatusUnprocessableEntity, "OVERRIDE_NOT_PERMITTED", err.Error())
	case errors.Is(err, clock.ErrOverrideReasonRequired):
		Error(w, http.StatusUnprocessableEntity, "OVERRIDE_REASON_REQUIRED", err.Error())
	case errors.Is(err, clock.ErrOverridePhotoRequired):
		Error(w, http.StatusUnprocessableEntity, "OVERRIDE_PHOTO_REQUIRED", err.Error())

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
