package clock

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
)

// memStore backs the fake repositories. WithinTransaction snapshots the
// store and restores it when fn fails, mirroring a rollback.
type memStore struct {
	mu        sync.Mutex
	events    []clock.ClockEvent
	entries   map[string]clock.TimeEntry
	approvals map[string]clock.OverrideApproval

	failAppend error
	failOpen   error
}

func newMemStore() *memStore {
	return &memStore{
		entries:   map[string]clock.TimeEntry{},
		approvals: map[string]clock.OverrideApproval{},
	}
}

func (m *memStore) WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	m.mu.Lock()
	events := append([]clock.ClockEvent(nil), m.events...)
	entries := make(map[string]clock.TimeEntry, len(m.entries))
	for k, v := range m.entries {
		entries[k] = v
	}
	approvals := make(map[string]clock.OverrideApproval, len(m.approvals))
	for k, v := range m.approvals {
		approvals[k] = v
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.events, m.entries, m.approvals = events, entries, approvals
		m.mu.Unlock()
		return err
	}
	return nil
}

type fakeEvents struct{ *memStore }

func (f fakeEvents) Append(_ context.Context, e clock.ClockEvent) (clock.ClockEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend != nil {
		return clock.ClockEvent{}, f.failAppend
	}
	if e.OverrideOfEventID != nil {
		for _, existing := range f.events {
			if existing.OverrideOfEventID != nil && *existing.OverrideOfEventID == *e.OverrideOfEventID {
				return clock.ClockEvent{}, clock.ErrAlreadyOverridden
			}
		}
	}
	f.events = append(f.events, e)
	return e, nil
}

func (f fakeEvents) withApproval(e clock.ClockEvent) clock.ClockEvent {
	if a, ok := f.approvals[e.ID]; ok {
		e.OverrideApprovedBy = &a.ApprovedBy
		e.OverrideApprovedAt = &a.ApprovedAt
	}
	return e
}

func (f fakeEvents) GetByID(_ context.Context, businessID, id string) (clock.ClockEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id && e.BusinessID == businessID {
			return f.withApproval(e), nil
		}
	}
	return clock.ClockEvent{}, clock.ErrEventNotFound
}

func (f fakeEvents) GetOverrideOf(_ context.Context, businessID, blockedEventID string) (clock.ClockEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.BusinessID == businessID && e.OverrideOfEventID != nil && *e.OverrideOfEventID == blockedEventID {
			return f.withApproval(e), nil
		}
	}
	return clock.ClockEvent{}, clock.ErrEventNotFound
}

func (f fakeEvents) list(match func(clock.ClockEvent) bool, filter clock.LedgerFilter) ([]clock.ClockEvent, int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []clock.ClockEvent
	for _, e := range f.events {
		if match(e) {
			out = append(out, f.withApproval(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	total := int64(len(out))
	start := filter.Offset()
	if start > len(out) {
		start = len(out)
	}
	end := start + filter.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total
}

func (f fakeEvents) ListByJob(_ context.Context, businessID, jobID string, filter clock.LedgerFilter) ([]clock.ClockEvent, int64, error) {
	events, total := f.list(func(e clock.ClockEvent) bool {
		return e.BusinessID == businessID && e.JobID == jobID
	}, filter)
	return events, total, nil
}

func (f fakeEvents) ListByUser(_ context.Context, businessID, userID string, filter clock.LedgerFilter) ([]clock.ClockEvent, int64, error) {
	events, total := f.list(func(e clock.ClockEvent) bool {
		return e.BusinessID == businessID && e.UserID == userID
	}, filter)
	return events, total, nil
}

func (f fakeEvents) Summary(_ context.Context, businessID string, filter clock.SummaryFilter) (clock.LedgerSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s clock.LedgerSummary
	for _, e := range f.events {
		if e.BusinessID != businessID {
			continue
		}
		if filter.JobID != nil && e.JobID != *filter.JobID {
			continue
		}
		attempt := e.OverrideOfEventID == nil
		if attempt {
			s.TotalEvents++
		}
		switch e.Status {
		case clock.EventStatusGranted:
			s.GrantedCount++
		case clock.EventStatusWarned:
			s.WarnedCount++
		case clock.EventStatusBlocked:
			s.BlockedCount++
		case clock.EventStatusOverride:
			if _, ok := f.approvals[e.ID]; !ok {
				s.PendingApprovalCount++
			}
		}
		if attempt && e.IsViolation() {
			s.ViolationCount++
		}
		if e.HasOverrideEvidence() {
			s.OverrideCount++
		}
	}
	return s, nil
}

type fakeEntries struct{ *memStore }

func (f fakeEntries) GetOpen(_ context.Context, businessID, userID, jobID string) (clock.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.BusinessID == businessID && e.UserID == userID && e.JobID == jobID && e.IsOpen() {
			return e, nil
		}
	}
	return clock.TimeEntry{}, clock.ErrNoOpenTimeEntry
}

func (f fakeEntries) Open(_ context.Context, entry clock.TimeEntry) (clock.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOpen != nil {
		return clock.TimeEntry{}, f.failOpen
	}
	for _, e := range f.entries {
		if e.UserID == entry.UserID && e.JobID == entry.JobID && e.IsOpen() {
			return clock.TimeEntry{}, clock.ErrAlreadyClockedIn
		}
	}
	entry.CreatedAt = entry.ClockIn
	entry.UpdatedAt = entry.ClockIn
	f.entries[entry.ID] = entry
	return entry, nil
}

func (f fakeEntries) Close(_ context.Context, businessID, entryID string, clockOut time.Time, clockOutEventID string, durationMinutes float64) (clock.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[entryID]
	if !ok || e.BusinessID != businessID || !e.IsOpen() {
		return clock.TimeEntry{}, clock.ErrNoOpenTimeEntry
	}
	e.ClockOut = &clockOut
	e.ClockOutEventID = &clockOutEventID
	e.DurationMinutes = &durationMinutes
	e.UpdatedAt = clockOut
	f.entries[entryID] = e
	return e, nil
}

func (f fakeEntries) ListByUser(_ context.Context, businessID, userID string, filter clock.TimeEntryFilter) ([]clock.TimeEntry, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []clock.TimeEntry
	for _, e := range f.entries {
		if e.BusinessID == businessID && e.UserID == userID && (!filter.OpenOnly || e.IsOpen()) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockIn.Before(out[j].ClockIn) })
	return out, int64(len(out)), nil
}

func (f fakeEntries) ListOpenOlderThan(_ context.Context, cutoff time.Time) ([]clock.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []clock.TimeEntry
	for _, e := range f.entries {
		if e.IsOpen() && e.ClockIn.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f fakeEntries) openCount(userID, jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.UserID == userID && e.JobID == jobID && e.IsOpen() {
			n++
		}
	}
	return n
}

type fakeApprovals struct{ *memStore }

func (f fakeApprovals) Create(_ context.Context, a clock.OverrideApproval) (clock.OverrideApproval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.approvals[a.EventID]; ok {
		return clock.OverrideApproval{}, clock.ErrOverrideAlreadyApproved
	}
	f.approvals[a.EventID] = a
	return a, nil
}

type fakeConfigs struct {
	configs map[string]geofence.GeofenceConfig
	err     error
}

func (f *fakeConfigs) GetConfig(_ context.Context, businessID, jobID string) (geofence.GeofenceConfig, error) {
	if f.err != nil {
		return geofence.GeofenceConfig{}, f.err
	}
	cfg, ok := f.configs[jobID]
	if !ok || cfg.BusinessID != businessID {
		return geofence.GeofenceConfig{}, geofence.ErrJobNotFound
	}
	return cfg, nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []clock.ClockEvent
}

func (r *recordingBroadcaster) ClockEventRecorded(e clock.ClockEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingBroadcaster) StaleTimeEntries(string, []clock.TimeEntry) {}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errDatabaseDown = errors.New("connection refused")
