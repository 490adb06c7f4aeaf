package geofence

import "time"

type EnforcementMode string

const (
	EnforcementOff    EnforcementMode = "off"    // Never blocks, outside events still logged
	EnforcementWarn   EnforcementMode = "warn"   // Allows, logs the event as warned
	EnforcementStrict EnforcementMode = "strict" // Blocks unless overridden
)

var EnforcementModeValues = []string{
	string(EnforcementOff),
	string(EnforcementWarn),
	string(EnforcementStrict),
}

func (m EnforcementMode) Valid() bool {
	return m == EnforcementOff || m == EnforcementWarn || m == EnforcementStrict
}

// JobSite is the geofence view of a job in the job directory.
// Coordinates are nil until the office geocodes the job address.
type JobSite struct {
	JobID                string
	BusinessID           string
	Name                 string
	Latitude             *float64
	Longitude            *float64
	RadiusMeters         *float64
	EnforcementMode      *EnforcementMode
	ExpandedRadiusMeters *float64
	ExpandedUntil        *time.Time
	ExpandedBy           *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// HasLocation reports whether both job coordinates are known.
func (j JobSite) HasLocation() bool {
	return j.Latitude != nil && j.Longitude != nil
}

// BusinessSettings is the per-business enforcement policy.
type BusinessSettings struct {
	BusinessID             string
	DefaultRadiusMeters    *float64
	DefaultEnforcementMode EnforcementMode
	AllowOverride          bool
	OverrideRequiresReason bool
	OverrideRequiresPhoto  bool
	AccuracyWarningMeters  float64
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// GeofenceConfig is the resolved geofence for one job. The radius in effect
// is not stored here; it depends on the evaluation instant.
type GeofenceConfig struct {
	JobID                  string
	BusinessID             string
	CenterLatitude         *float64
	CenterLongitude        *float64
	BaseRadiusMeters       float64
	EnforcementMode        EnforcementMode
	ExpandedRadiusMeters   *float64
	ExpandedUntil          *time.Time
	AllowOverride          bool
	OverrideRequiresReason bool
	OverrideRequiresPhoto  bool
	AccuracyWarningMeters  float64
}

// HasCenter reports whether the job coordinates are known.
func (c GeofenceConfig) HasCenter() bool {
	return c.CenterLatitude != nil && c.CenterLongitude != nil
}

// LocationSample is a single fix reported by the worker's device.
// AccuracyMeters is nil when the device did not report an accuracy.
type LocationSample struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters *float64  `json:"accuracy_meters,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
}

// Age returns how old the fix is at now.
func (s LocationSample) Age(now time.Time) time.Duration {
	return now.Sub(s.CapturedAt)
}

type Outcome string

const (
	OutcomeGranted Outcome = "granted"
	OutcomeWarned  Outcome = "warned"
	OutcomeBlocked Outcome = "blocked"
)

// Verdict is the result of validating one sample against one config.
// It is never persisted on its own; the ledger row embeds it.
type Verdict struct {
	Outcome                Outcome         `json:"outcome"`
	WithinGeofence         *bool           `json:"within_geofence"`
	DistanceMeters         *float64        `json:"distance_meters"`
	EffectiveRadiusMeters  float64         `json:"effective_radius_meters"`
	RadiusExpanded         bool            `json:"radius_expanded"`
	EnforcementMode        EnforcementMode `json:"enforcement_mode"`
	CanOverride            bool            `json:"can_override"`
	OverrideRequiresReason bool            `json:"override_requires_reason"`
	OverrideRequiresPhoto  bool            `json:"override_requires_photo"`
	NoJobLocation          bool            `json:"no_job_location"`
	ValidatedAt            time.Time       `json:"validated_at"`
}

// Blocked reports whether the clock action must not proceed without an override.
func (v Verdict) Blocked() bool {
	return v.Outcome == OutcomeBlocked
}

// AuditNoteJobLocationMissing marks events validated against a job without coordinates.
const AuditNoteJobLocationMissing = "job_location_missing"
