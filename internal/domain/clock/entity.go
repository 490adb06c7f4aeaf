package clock

import (
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
)

type EventType string

const (
	EventTypeClockIn  EventType = "clock_in"
	EventTypeClockOut EventType = "clock_out"
)

var EventTypeValues = []string{
	string(EventTypeClockIn),
	string(EventTypeClockOut),
}

type EventStatus string

const (
	EventStatusGranted  EventStatus = "granted"
	EventStatusWarned   EventStatus = "warned"
	EventStatusBlocked  EventStatus = "blocked"
	EventStatusOverride EventStatus = "override"
)

// StatusFromOutcome maps a validation outcome onto the ledger status.
func StatusFromOutcome(o geofence.Outcome) EventStatus {
	switch o {
	case geofence.OutcomeWarned:
		return EventStatusWarned
	case geofence.OutcomeBlocked:
		return EventStatusBlocked
	default:
		return EventStatusGranted
	}
}

// AdmitsTimeEntry reports whether an event with this status opens or closes a time entry.
func (s EventStatus) AdmitsTimeEntry() bool {
	return s != EventStatusBlocked
}

// ClockEvent is one row of the append-only ledger. The verdict fields are
// frozen at write time and never recomputed.
type ClockEvent struct {
	ID                     string
	BusinessID             string
	JobID                  string
	UserID                 string
	EventType              EventType
	RecordedAt             time.Time
	Latitude               *float64
	Longitude              *float64
	AccuracyMeters         *float64
	LocationCapturedAt     *time.Time
	WithinGeofence         *bool
	DistanceFromJobMeters  *float64
	GeofenceRadiusMeters   float64
	RadiusExpanded         bool
	EnforcementMode        geofence.EnforcementMode
	CanOverride            bool
	OverrideRequiresReason bool
	OverrideRequiresPhoto  bool
	Status                 EventStatus
	OverrideOfEventID      *string
	OverrideReason         *string
	OverridePhotoURL       *string
	AuditNote              *string

	// Joined from clock_event_approvals on read.
	OverrideApprovedBy *string
	OverrideApprovedAt *time.Time
}

// IsViolation reports whether the attempt was recorded outside the geofence.
func (e ClockEvent) IsViolation() bool {
	return e.WithinGeofence != nil && !*e.WithinGeofence
}

// HasOverrideEvidence reports whether a reason or photo was submitted.
func (e ClockEvent) HasOverrideEvidence() bool {
	return e.OverrideReason != nil || e.OverridePhotoURL != nil
}

// TimeEntry is the labor-duration projection of a matched clock-in/clock-out pair.
type TimeEntry struct {
	ID              string
	BusinessID      string
	JobID           string
	UserID          string
	ClockIn         time.Time
	ClockOut        *time.Time
	ClockInEventID  string
	ClockOutEventID *string
	DurationMinutes *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (t TimeEntry) IsOpen() bool {
	return t.ClockOut == nil
}

// DurationMinutes returns the exact minutes between clock-in and clock-out.
func DurationMinutes(clockIn, clockOut time.Time) float64 {
	return clockOut.Sub(clockIn).Minutes()
}

// OverrideApproval is the supervisor sign-off on an override event.
type OverrideApproval struct {
	EventID    string
	BusinessID string
	ApprovedBy string
	ApprovedAt time.Time
	Notes      *string
}

// LedgerSummary holds the read aggregates exposed to dashboards.
// TotalEvents and ViolationCount count attempts: an override row is folded
// into the blocked attempt it re-admits.
type LedgerSummary struct {
	TotalEvents          int64 `json:"total_events"`
	GrantedCount         int64 `json:"granted_count"`
	WarnedCount          int64 `json:"warned_count"`
	BlockedCount         int64 `json:"blocked_count"`
	OverrideCount        int64 `json:"override_count"`
	ViolationCount       int64 `json:"violation_count"`
	PendingApprovalCount int64 `json:"pending_approval_count"`
}
