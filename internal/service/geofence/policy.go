package geofence

import (
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
)

// DefaultMinimumRadiusMeters applies when neither the job, the business nor
// the deployment configures a radius.
const DefaultMinimumRadiusMeters = 150.0

// ResolveConfig merges job-level settings over business defaults.
//
// Radius: job, then business default, then fallbackRadius.
// Mode: job, then business default, then warn.
func ResolveConfig(job geofence.JobSite, settings geofence.BusinessSettings, fallbackRadius float64) geofence.GeofenceConfig {
	if fallbackRadius <= 0 {
		fallbackRadius = DefaultMinimumRadiusMeters
	}

	radius := fallbackRadius
	switch {
	case job.RadiusMeters != nil && *job.RadiusMeters > 0:
		radius = *job.RadiusMeters
	case settings.DefaultRadiusMeters != nil && *settings.DefaultRadiusMeters > 0:
		radius = *settings.DefaultRadiusMeters
	}

	mode := geofence.EnforcementWarn
	switch {
	case job.EnforcementMode != nil && job.EnforcementMode.Valid():
		mode = *job.EnforcementMode
	case settings.DefaultEnforcementMode.Valid():
		mode = settings.DefaultEnforcementMode
	}

	accuracy := settings.AccuracyWarningMeters
	if accuracy <= 0 {
		accuracy = geofence.DefaultAccuracyWarningMeters
	}

	return geofence.GeofenceConfig{
		JobID:                  job.JobID,
		BusinessID:             job.BusinessID,
		CenterLatitude:         job.Latitude,
		CenterLongitude:        job.Longitude,
		BaseRadiusMeters:       radius,
		EnforcementMode:        mode,
		ExpandedRadiusMeters:   job.ExpandedRadiusMeters,
		ExpandedUntil:          job.ExpandedUntil,
		AllowOverride:          settings.AllowOverride,
		OverrideRequiresReason: settings.OverrideRequiresReason,
		OverrideRequiresPhoto:  settings.OverrideRequiresPhoto,
		AccuracyWarningMeters:  accuracy,
	}
}

// EffectiveRadius returns the radius in effect at now. An expansion applies
// only while ExpandedUntil is strictly after now; a lapsed one is ignored.
func EffectiveRadius(cfg geofence.GeofenceConfig, now time.Time) (float64, bool) {
	if cfg.ExpandedUntil != nil && cfg.ExpandedRadiusMeters != nil && *cfg.ExpandedRadiusMeters > 0 &&
		cfg.ExpandedUntil.After(now) {
		return *cfg.ExpandedRadiusMeters, true
	}
	return cfg.BaseRadiusMeters, false
}
