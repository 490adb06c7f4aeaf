package clock

import (
	"context"
	"time"
)

// ClockEventRepository is the ledger. It exposes no update or delete.
type ClockEventRepository interface {
	Append(ctx context.Context, event ClockEvent) (ClockEvent, error)
	GetByID(ctx context.Context, businessID, id string) (ClockEvent, error)
	GetOverrideOf(ctx context.Context, businessID, blockedEventID string) (ClockEvent, error)
	ListByJob(ctx context.Context, businessID, jobID string, filter LedgerFilter) ([]ClockEvent, int64, error)
	ListByUser(ctx context.Context, businessID, userID string, filter LedgerFilter) ([]ClockEvent, int64, error)
	Summary(ctx context.Context, businessID string, filter SummaryFilter) (LedgerSummary, error)
}

type TimeEntryRepository interface {
	// GetOpen returns ErrNoOpenTimeEntry when the user has no open entry on the job.
	GetOpen(ctx context.Context, businessID, userID, jobID string) (TimeEntry, error)
	// Open returns ErrAlreadyClockedIn when an open entry already exists.
	Open(ctx context.Context, entry TimeEntry) (TimeEntry, error)
	// Close returns ErrNoOpenTimeEntry when the entry is missing or already closed.
	Close(ctx context.Context, businessID, entryID string, clockOut time.Time, clockOutEventID string, durationMinutes float64) (TimeEntry, error)
	ListByUser(ctx context.Context, businessID, userID string, filter TimeEntryFilter) ([]TimeEntry, int64, error)
	ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]TimeEntry, error)
}

type OverrideApprovalRepository interface {
	// Create returns ErrOverrideAlreadyApproved when the event already has an approval.
	Create(ctx context.Context, approval OverrideApproval) (OverrideApproval, error)
}
