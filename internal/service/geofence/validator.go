package geofence

import (
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/utils"
)

// Validate decides whether sample is close enough to the job described by cfg.
// The boundary is inclusive. A job without coordinates is always granted and
// flagged NoJobLocation so the worker is never stuck behind a missing address.
func Validate(sample geofence.LocationSample, cfg geofence.GeofenceConfig, now time.Time) geofence.Verdict {
	radius, expanded := EffectiveRadius(cfg, now)

	verdict := geofence.Verdict{
		Outcome:               geofence.OutcomeGranted,
		EffectiveRadiusMeters: radius,
		RadiusExpanded:        expanded,
		EnforcementMode:       cfg.EnforcementMode,
		ValidatedAt:           now,
	}

	if !cfg.HasCenter() {
		verdict.NoJobLocation = true
		return verdict
	}

	distance := utils.CalculateHaversineDistance(
		sample.Latitude, sample.Longitude,
		*cfg.CenterLatitude, *cfg.CenterLongitude,
	)
	within := distance <= radius
	verdict.DistanceMeters = &distance
	verdict.WithinGeofence = &within

	if within {
		return verdict
	}

	switch cfg.EnforcementMode {
	case geofence.EnforcementOff:
		// granted, the violation stays visible through WithinGeofence
	case geofence.EnforcementStrict:
		verdict.Outcome = geofence.OutcomeBlocked
		verdict.CanOverride = cfg.AllowOverride
		verdict.OverrideRequiresReason = cfg.OverrideRequiresReason
		verdict.OverrideRequiresPhoto = cfg.OverrideRequiresPhoto
	default:
		verdict.Outcome = geofence.OutcomeWarned
	}

	return verdict
}
