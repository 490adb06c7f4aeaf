package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/metrics"
)

const StaleTimeEntriesJob = "flag_stale_time_entries"

// TimeEntryJobs reports time entries left open for too long. Open entries
// are never closed here: guessing a clock-out time would corrupt payroll.
type TimeEntryJobs struct {
	entries     clock.TimeEntryRepository
	broadcaster clock.Broadcaster
	metrics     *metrics.Metrics
	staleAfter  time.Duration
	now         func() time.Time
}

// NewTimeEntryJobs creates the time entry jobs. broadcaster and m may be nil.
func NewTimeEntryJobs(
	entries clock.TimeEntryRepository,
	broadcaster clock.Broadcaster,
	m *metrics.Metrics,
	staleAfter time.Duration,
	now func() time.Time,
) *TimeEntryJobs {
	if staleAfter <= 0 {
		staleAfter = 16 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &TimeEntryJobs{
		entries:     entries,
		broadcaster: broadcaster,
		metrics:     m,
		staleAfter:  staleAfter,
		now:         now,
	}
}

func (j *TimeEntryJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.Add(Job{
		Name:     StaleTimeEntriesJob,
		Interval: interval,
		Timeout:  time.Minute,
		Fn:       j.FlagStaleTimeEntries,
	})
}

// FlagStaleTimeEntries logs and broadcasts, per business, the entries open
// for longer than the configured threshold.
func (j *TimeEntryJobs) FlagStaleTimeEntries(ctx context.Context) error {
	cutoff := j.now().Add(-j.staleAfter)

	stale, err := j.entries.ListOpenOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list stale time entries: %w", err)
	}

	j.metrics.SetStaleOpenEntries(len(stale))

	if len(stale) == 0 {
		slog.Debug("Cron: No stale time entries found")
		return nil
	}

	byBusiness := make(map[string][]clock.TimeEntry)
	var order []string
	for _, entry := range stale {
		if _, ok := byBusiness[entry.BusinessID]; !ok {
			order = append(order, entry.BusinessID)
		}
		byBusiness[entry.BusinessID] = append(byBusiness[entry.BusinessID], entry)
	}

	for _, businessID := range order {
		entries := byBusiness[businessID]
		for _, entry := range entries {
			slog.Warn("Time entry open past threshold",
				"business_id", businessID,
				"time_entry_id", entry.ID,
				"user_id", entry.UserID,
				"job_id", entry.JobID,
				"clock_in", entry.ClockIn,
				"open_for", j.now().Sub(entry.ClockIn).Round(time.Minute),
			)
		}
		if j.broadcaster != nil {
			j.broadcaster.StaleTimeEntries(businessID, entries)
		}
	}

	slog.Info("Cron: Stale time entries flagged", "count", len(stale), "businesses", len(order))
	return nil
}
