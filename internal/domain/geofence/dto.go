package geofence

import (
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/validator"
)

type ExpandRadiusRequest struct {
	JobID                string    `json:"-"`
	ExpandedRadiusMeters float64   `json:"expanded_radius_meters"`
	ExpandedUntil        string    `json:"expanded_until"` // RFC3339
	ParsedUntil          time.Time `json:"-"`
}

func (r *ExpandRadiusRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.JobID) {
		errs = append(errs, validator.ValidationError{
			Field:   "job_id",
			Message: "job_id is required",
		})
	} else if !validator.IsValidUUID(r.JobID) {
		errs = append(errs, validator.ValidationError{
			Field:   "job_id",
			Message: "job_id must be a valid UUID",
		})
	}

	if r.ExpandedRadiusMeters <= 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "expanded_radius_meters",
			Message: "expanded_radius_meters must be greater than 0",
		})
	}

	if validator.IsEmpty(r.ExpandedUntil) {
		errs = append(errs, validator.ValidationError{
			Field:   "expanded_until",
			Message: "expanded_until is required",
		})
	} else if until, valid := validator.IsValidDateTime(r.ExpandedUntil); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "expanded_until",
			Message: "expanded_until must be an RFC3339 timestamp",
		})
	} else {
		r.ParsedUntil = until
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// GeofenceConfigResponse is the resolved geofence as seen by a client at a given instant.
type GeofenceConfigResponse struct {
	JobID                  string          `json:"job_id"`
	HasLocation            bool            `json:"has_location"`
	CenterLatitude         *float64        `json:"center_latitude"`
	CenterLongitude        *float64        `json:"center_longitude"`
	BaseRadiusMeters       float64         `json:"base_radius_meters"`
	EffectiveRadiusMeters  float64         `json:"effective_radius_meters"`
	RadiusExpanded         bool            `json:"radius_expanded"`
	ExpandedRadiusMeters   *float64        `json:"expanded_radius_meters,omitempty"`
	ExpandedUntil          *time.Time      `json:"expanded_until,omitempty"`
	EnforcementMode        EnforcementMode `json:"enforcement_mode"`
	AllowOverride          bool            `json:"allow_override"`
	OverrideRequiresReason bool            `json:"override_requires_reason"`
	OverrideRequiresPhoto  bool            `json:"override_requires_photo"`
	AccuracyWarningMeters  float64         `json:"accuracy_warning_meters"`
	EvaluatedAt            time.Time       `json:"evaluated_at"`
}
