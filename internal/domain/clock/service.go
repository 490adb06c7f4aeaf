package clock

import (
	"context"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ClockService defines the time clock write path and ledger reads
type ClockService interface {
	// Clock validates a location fix against the job geofence and appends exactly
	// one ledger row. Granted and warned attempts also open or close a time entry.
	Clock(ctx context.Context, actor user.Actor, req ClockRequest) (ClockResponse, error)

	// SubmitOverride re-admits a blocked attempt with a reason and/or photo.
	SubmitOverride(ctx context.Context, actor user.Actor, req OverrideRequest) (ClockResponse, error)

	// ApproveOverride records a supervisor sign-off on an override event.
	ApproveOverride(ctx context.Context, actor user.Actor, req ApproveOverrideRequest) (ApprovalResponse, error)

	// GetEvent returns one ledger row. Workers only see their own events.
	GetEvent(ctx context.Context, actor user.Actor, eventID string) (ClockEventResponse, error)

	// ListJobEvents returns a job's ledger in chronological order (manager).
	ListJobEvents(ctx context.Context, actor user.Actor, jobID string, filter LedgerFilter) (ListClockEventResponse, error)

	// ListMyEvents returns the caller's own ledger rows.
	ListMyEvents(ctx context.Context, actor user.Actor, filter LedgerFilter) (ListClockEventResponse, error)

	// ListMyTimeEntries returns the caller's time entries.
	ListMyTimeEntries(ctx context.Context, actor user.Actor, filter TimeEntryFilter) (ListTimeEntryResponse, error)

	// Summary returns violation and override aggregates (manager).
	Summary(ctx context.Context, actor user.Actor, filter SummaryFilter) (LedgerSummary, error)

	// ExportJobGeoJSON returns a job's ledger as point features plus the
	// geofence in effect now (manager).
	ExportJobGeoJSON(ctx context.Context, actor user.Actor, jobID string, filter LedgerFilter) (*geojson.FeatureCollection, error)
}

// Broadcaster delivers committed ledger activity to live subscribers.
// Implementations must not block the caller.
type Broadcaster interface {
	ClockEventRecorded(event ClockEvent)
	StaleTimeEntries(businessID string, entries []TimeEntry)
}
