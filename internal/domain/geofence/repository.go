package geofence

import (
	"context"
	"time"
)

// JobSiteRepository reads the geofence columns of the job directory.
type JobSiteRepository interface {
	GetByJobID(ctx context.Context, businessID, jobID string) (JobSite, error)
	// UpdateExpansion writes the temporary radius expansion. Expired values are never cleared.
	UpdateExpansion(ctx context.Context, businessID, jobID string, radiusMeters float64, until time.Time, expandedBy string) (JobSite, error)
}

// BusinessSettingsRepository reads per-business enforcement policy.
type BusinessSettingsRepository interface {
	// GetByBusinessID returns the stored settings, or DefaultBusinessSettings when none exist.
	GetByBusinessID(ctx context.Context, businessID string) (BusinessSettings, error)
}

// DefaultBusinessSettings is the policy applied to businesses without a settings row.
func DefaultBusinessSettings(businessID string) BusinessSettings {
	return BusinessSettings{
		BusinessID:             businessID,
		DefaultEnforcementMode: EnforcementWarn,
		AllowOverride:          true,
		OverrideRequiresReason: true,
		AccuracyWarningMeters:  DefaultAccuracyWarningMeters,
	}
}

// DefaultAccuracyWarningMeters applies when a business has no threshold configured.
const DefaultAccuracyWarningMeters = 50.0
