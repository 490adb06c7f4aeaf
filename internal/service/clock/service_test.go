package clock

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/validator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	businessID = "0190f5b2-0000-7000-8000-000000000001"
	jobID      = "0190f5b2-0000-7000-8000-0000000000a1"
	otherJobID = "0190f5b2-0000-7000-8000-0000000000a2"

	siteLat = 40.712776
	siteLon = -74.005974
)

var (
	worker   = user.Actor{UserID: "0190f5b2-0000-7000-8000-00000000c001", BusinessID: businessID, Role: user.RoleWorker}
	coworker = user.Actor{UserID: "0190f5b2-0000-7000-8000-00000000c002", BusinessID: businessID, Role: user.RoleWorker}
	manager  = user.Actor{UserID: "0190f5b2-0000-7000-8000-00000000b001", BusinessID: businessID, Role: user.RoleManager}
)

func ptr[T any](v T) *T { return &v }

type harness struct {
	svc       *ClockServiceImpl
	store     *memStore
	events    fakeEvents
	entries   fakeEntries
	configs   *fakeConfigs
	clock     *fakeClock
	broadcast *recordingBroadcaster
}

func siteConfig(mode geofence.EnforcementMode, radius float64) geofence.GeofenceConfig {
	return geofence.GeofenceConfig{
		JobID:                 jobID,
		BusinessID:            businessID,
		CenterLatitude:        ptr(siteLat),
		CenterLongitude:       ptr(siteLon),
		BaseRadiusMeters:      radius,
		EnforcementMode:       mode,
		AccuracyWarningMeters: 50,
	}
}

func newHarness(cfg geofence.GeofenceConfig) *harness {
	store := newMemStore()
	h := &harness{
		store:     store,
		events:    fakeEvents{store},
		entries:   fakeEntries{store},
		configs:   &fakeConfigs{configs: map[string]geofence.GeofenceConfig{cfg.JobID: cfg}},
		clock:     &fakeClock{now: time.Date(2026, 5, 4, 7, 30, 0, 0, time.UTC)},
		broadcast: &recordingBroadcaster{},
	}
	h.svc = NewClockService(
		store,
		h.events,
		h.entries,
		fakeApprovals{store},
		h.configs,
		h.broadcast,
		nil,
		Config{LocationMaxAge: 2 * time.Minute, OverrideWindow: 5 * time.Minute},
		h.clock.Now,
	)
	return h
}

// northOf returns the latitude meters due north of lat.
func northOf(lat, meters float64) float64 {
	return lat + (meters/utils.EarthRadiusMeters)*(180.0/math.Pi)
}

// request builds a fix meters due north of the site, captured 10s ago.
func (h *harness) request(eventType clock.EventType, meters float64) clock.ClockRequest {
	return clock.ClockRequest{
		JobID:          jobID,
		EventType:      string(eventType),
		Latitude:       northOf(siteLat, meters),
		Longitude:      siteLon,
		AccuracyMeters: ptr(8.0),
		CapturedAt:     h.clock.Now().Add(-10 * time.Second).Format(time.RFC3339),
	}
}

func (h *harness) eventCount() int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return len(h.store.events)
}

func TestClock_StrictOverrideDisabled_Blocked(t *testing.T) {
	cfg := siteConfig(geofence.EnforcementStrict, 150)
	cfg.AllowOverride = false
	h := newHarness(cfg)

	resp, err := h.svc.Clock(context.Background(), worker, h.request(clock.EventTypeClockIn, 200))
	require.NoError(t, err)

	assert.Equal(t, clock.EventStatusBlocked, resp.Event.Status)
	assert.Equal(t, geofence.OutcomeBlocked, resp.Verdict.Outcome)
	assert.False(t, resp.Verdict.CanOverride)
	assert.Nil(t, resp.TimeEntry)
	assert.Equal(t, 150.0, resp.Event.GeofenceRadiusMeters)
	assert.InDelta(t, 200, *resp.Event.DistanceFromJobMeters, 0.5)
	assert.Equal(t, "Outside the job geofence, clock action not permitted", resp.Message)

	assert.Equal(t, 1, h.eventCount())
	assert.Equal(t, 0, h.entries.openCount(worker.UserID, jobID))
}

func TestClock_StrictOverrideWithReason_Opens(t *testing.T) {
	cfg := siteConfig(geofence.EnforcementStrict, 150)
	cfg.AllowOverride = true
	cfg.OverrideRequiresReason = true
	h := newHarness(cfg)
	ctx := context.Background()

	blocked, err := h.svc.Clock(ctx, worker, h.request(clock.EventTypeClockIn, 200))
	require.NoError(t, err)
	require.Equal(t, clock.EventStatusBlocked, blocked.Event.Status)
	assert.True(t, blocked.Verdict.CanOverride)
	assert.True(t, blocked.Verdict.OverrideRequiresReason)

	h.clock.Advance(45 * time.Second)
	resp, err := h.svc.SubmitOverride(ctx, worker, clock.OverrideRequest{
		BlockedEventID: blocked.Event.ID,
		Reason:         ptr("parking restricted"),
	})
	require.NoError(t, err)

	assert.Equal(t, clock.EventStatusOverride, resp.Event.Status)
	assert.Equal(t, "parking restricted", *resp.Event.OverrideReason)
	assert.Nil(t, resp.Event.OverridePhotoURL)
	assert.Equal(t, blocked.Event.ID, *resp.Event.OverrideOfEventID)
	assert.Equal(t, *blocked.Event.Latitude, *resp.Event.Latitude)
	assert.Equal(t, blocked.Event.GeofenceRadiusMeters, resp.Event.GeofenceRadiusMeters)
	require.NotNil(t, resp.TimeEntry)
	assert.True(t, resp.TimeEntry.Open)
	assert.Equal(t, resp.Event.ID, resp.TimeEntry.ClockInEventID)

	assert.Equal(t, 2, h.eventCount())
	assert.Equal(t, 1, h.entries.openCount(worker.UserID, jobID))

	// The blocked row itself is untouched.
	original, err := h.events.GetByID(ctx, businessID, blocked.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, clock.EventStatusBlocked, original.Status)
	assert.Nil(t, original.OverrideReason)
}

func TestSummary_OverriddenAttemptCountsOnce(t *testing.T) {
	cfg := siteConfig(geofence.EnforcementStrict, 150)
	cfg.AllowOverride = true
	h := newHarness(cfg)
	ctx := context.Background()

	blocked, err := h.svc.Clock(ctx, worker, h.request(clock.EventTypeClockIn, 200))
	require.NoError(t, err)
	_, err = h.svc.SubmitOverride(ctx, worker, clock.OverrideRequest{
		BlockedEventID: blocked.Event.ID,
		Reason:         ptr("parking restricted"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, h.eventCount())

	s, err := h.svc.Summary(ctx, manager, clock.SummaryFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.TotalEvents)
	assert.Equal(t, int64(1), s.ViolationCount)
	assert.Equal(t, int64(1), s.BlockedCount)
	assert.Equal(t, int64(1), s.OverrideCount)
}

func TestSubmitOverride_Rejections(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, mutate func(*geofence.GeofenceConfig)) (*harness, string) {
		cfg := siteConfig(geofence.EnforcementStrict, 150)
		cfg.AllowOverride = true
		cfg.OverrideRequiresReason = true
		if mutate != nil {
			mutate(&cfg)
		}
		h := newHarness(cfg)
		resp, err := h.svc.Clock(ctx, worker, h.request(clock.EventTypeClockIn, 400))
		require.NoError(t, err)
		return h, resp.Event.ID
	}

	t.Run("blank reason", func(t *testing.T) {
		h, id := setup(t, nil)
		_, err := h.svc.SubmitOverride(ctx, worker, clock.OverrideRequest{BlockedEventID: id, Reason: ptr("   ")})
		assert.ErrorIs(t, err, clock.ErrOverrideReasonRequired)
		assert.Equal(t, 1, h.eventCount())
	})

	t.Run("missing photo", func(t *testing.T) {
		h, id := setup(t, func(c *geofence.GeofenceConfig) { c.OverrideRequiresPhoto = true })
		_, err := h.svc.SubmitOverride(ctx, worker, clock.OverrideRequest{BlockedEventID: id, Reason: ptr("gate locked")})
		assert.ErrorIs(t, err, clock.ErrOverridePhotoRequired)

		resp, err := h.svc.SubmitOverride(ctx, worker, clock.OverrideRequest{
			BlockedEventID: id,
			Reason:         ptr("gate locked"),
			PhotoURL:       ptr("https://files.example.com/p/1.jpg"),
		})
		require.NoError(t, err)
		assert.Equal(t, "https://files.example.com/p/1.jpg", *resp.Event.OverridePhotoURL)
	})

	t.Run("override disabled", func(t *testing.T) {
		h, id := setup(t, func(c *geofence.GeofenceConfig) { c.AllowOverride = false })
		_, err := h.svc.SubmitOverride(ctx, worker, clock.OverrideRequest{BlockedEventID: id, Reason: ptr("x")})
		assert.ErrorIs(t, err, clock.ErrOverrideNotAllowed)
	})

	t.Run("already overridden", func(t *testing.T) {
		h, id := setup(t, nil)
		_, err := h.svc.SubmitOverride(ctx, worker, clock.OverrideRequest{BlockedEventID: id, Reason: ptr("first")})
		require.NoError(t, err)
		_, err = h.svc.SubmitOverride(ctx, worker, clock.OverrideRequest{BlockedEventID: id, Reason: ptr("second")})
		assert.ErrorIs(t, err, clock.ErrAlreadyOverridden)
		assert.Equal(t, 2, h.eventCount())
	})

	t.Run("stale attempt", func(t *testing.T) {
		h, id := setup(t, nil)
		h.clock.Advance(6 * time.Minute)
		_, err := h.svc.SubmitOverride(ctx, worker, clock.OverrideRequest{BlockedEventID: id, Reason: ptr("late")})
		assert.ErrorIs(t, err, clock.ErrStaleAttempt)
		assert.Equal(t, 1, h.eventCount())
	})

	t.Run("someone else's event", func(t *testing.T) {
		h, id := setup(t, nil)
		_, err := h.svc.SubmitOverride(ctx, coworker, clock.OverrideRequest{BlockedEventID: id, Reason: ptr("x")})
		assert.ErrorIs(t, err, clock.ErrUnauthorized)
	})

	t.Run("not blocked", func(t *testing.T) {
		h, _ := setup(t, nil)
		granted, err := h.svc.Clock(ctx, coworker, h.request(clock.EventTypeClockIn, 10))
		require.NoError(t, err)
		_, err = h.svc.SubmitOverride(ctx, coworker, clock.OverrideRequest{BlockedEventID: granted.Event.ID, Reason: ptr("x")})
		assert.ErrorIs(t, err, clock.ErrNotBlocked)
	})

	t.Run("unknown event", func(t *testing.T) {
		h, _ := setup(t, nil)
		_, err := h.svc.SubmitOverride(ctx, worker, clock.OverrideRequest{
			BlockedEventID: "0190f5b2-0000-7000-8000-00000000ffff",
			Reason:         ptr("x"),
		})
		assert.ErrorIs(t, err, clock.ErrEventNotFound)
	})
}

func TestClock_WarnModeOutside(t *testing.T) {
	h := newHarness(siteConfig(geofence.EnforcementWarn, 150))

	resp, err := h.svc.Clock(context.Background(), worker, h.request(clock.EventTypeClockIn, 600))
	require.NoError(t, err)

	assert.Equal(t, clock.EventStatusWarned, resp.Event.Status)
	assert.False(t, *resp.Event.WithinGeofence)
	require.NotNil(t, resp.TimeEntry)
	assert.True(t, resp.TimeEntry.Open)
}

func TestClock_OffModeOutside(t *testing.T) {
	h := newHarness(siteConfig(geofence.EnforcementOff, 150))

	resp, err := h.svc.Clock(context.Background(), worker, h.request(clock.EventTypeClockIn, 5000))
	require.NoError(t, err)

	assert.Equal(t, clock.EventStatusGranted, resp.Event.Status)
	assert.False(t, *resp.Event.WithinGeofence)
	assert.NotNil(t, resp.TimeEntry)
}

func TestClock_JobWithoutCoordinates(t *testing.T) {
	cfg := siteConfig(geofence.EnforcementStrict, 150)
	cfg.CenterLatitude = nil
	cfg.CenterLongitude = nil
	h := newHarness(cfg)

	resp, err := h.svc.Clock(context.Background(), worker, h.request(clock.EventTypeClockIn, 10000))
	require.NoError(t, err)

	assert.Equal(t, clock.EventStatusGranted, resp.Event.Status)
	assert.True(t, resp.Verdict.NoJobLocation)
	assert.Nil(t, resp.Event.WithinGeofence)
	assert.Nil(t, resp.Event.DistanceFromJobMeters)
	require.NotNil(t, resp.Event.AuditNote)
	assert.Equal(t, geofence.AuditNoteJobLocationMissing, *resp.Event.AuditNote)
	assert.NotNil(t, resp.TimeEntry)
}

func TestClock_ExpansionEvaluatedAtValidationTime(t *testing.T) {
	cfg := siteConfig(geofence.EnforcementStrict, 100)
	cfg.ExpandedRadiusMeters = ptr(500.0)
	h := newHarness(cfg)
	until := h.clock.Now().Add(time.Hour)
	cfg.ExpandedUntil = &until
	h.configs.configs[jobID] = cfg
	ctx := context.Background()

	resp, err := h.svc.Clock(ctx, worker, h.request(clock.EventTypeClockIn, 300))
	require.NoError(t, err)
	assert.Equal(t, clock.EventStatusGranted, resp.Event.Status)
	assert.True(t, resp.Event.RadiusExpanded)
	assert.Equal(t, 500.0, resp.Event.GeofenceRadiusMeters)

	h.clock.Advance(2 * time.Hour)
	resp, err = h.svc.Clock(ctx, worker, h.request(clock.EventTypeClockOut, 300))
	require.NoError(t, err)
	assert.Equal(t, clock.EventStatusBlocked, resp.Event.Status)
	assert.False(t, resp.Event.RadiusExpanded)
	assert.Equal(t, 100.0, resp.Event.GeofenceRadiusMeters)
	assert.Equal(t, 1, h.entries.openCount(worker.UserID, jobID), "blocked clock-out leaves the entry open")
}

func TestClock_OneLedgerRowPerValidation(t *testing.T) {
	cfg := siteConfig(geofence.EnforcementStrict, 150)
	cfg.AllowOverride = true
	h := newHarness(cfg)
	ctx := context.Background()

	attempts := []struct {
		eventType clock.EventType
		meters    float64
		status    clock.EventStatus
	}{
		{clock.EventTypeClockIn, 400, clock.EventStatusBlocked},
		{clock.EventTypeClockIn, 900, clock.EventStatusBlocked},
		{clock.EventTypeClockIn, 20, clock.EventStatusGranted},
		{clock.EventTypeClockOut, 700, clock.EventStatusBlocked},
		{clock.EventTypeClockOut, 100, clock.EventStatusGranted},
	}

	for i, a := range attempts {
		h.clock.Advance(time.Minute)
		resp, err := h.svc.Clock(ctx, worker, h.request(a.eventType, a.meters))
		require.NoError(t, err)
		assert.Equal(t, a.status, resp.Event.Status)
		assert.Equal(t, i+1, h.eventCount())
	}

	assert.Len(t, h.broadcast.events, len(attempts))
}

func TestClock_DoubleClockInRejected(t *testing.T) {
	h := newHarness(siteConfig(geofence.EnforcementWarn, 150))
	ctx := context.Background()

	_, err := h.svc.Clock(ctx, worker, h.request(clock.EventTypeClockIn, 10))
	require.NoError(t, err)

	_, err = h.svc.Clock(ctx, worker, h.request(clock.EventTypeClockIn, 10))
	assert.ErrorIs(t, err, clock.ErrAlreadyClockedIn)

	assert.Equal(t, 1, h.eventCount())
	assert.Equal(t, 1, h.entries.openCount(worker.UserID, jobID))
}

func TestClock_OpenEntryRaceRollsBack(t *testing.T) {
	h := newHarness(siteConfig(geofence.EnforcementWarn, 150))
	h.store.failOpen = clock.ErrAlreadyClockedIn

	_, err := h.svc.Clock(context.Background(), worker, h.request(clock.EventTypeClockIn, 10))
	assert.ErrorIs(t, err, clock.ErrAlreadyClockedIn)
	assert.Equal(t, 0, h.eventCount(), "the event row is rolled back with the entry")
}

func TestClock_TransientFailureLeavesNoRow(t *testing.T) {
	h := newHarness(siteConfig(geofence.EnforcementWarn, 150))
	h.store.failOpen = errDatabaseDown

	_, err := h.svc.Clock(context.Background(), worker, h.request(clock.EventTypeClockIn, 10))
	assert.ErrorIs(t, err, errDatabaseDown)
	assert.Equal(t, 0, h.eventCount())
	assert.Empty(t, h.broadcast.events)
}

func TestClock_ClockOutWithoutOpenEntry(t *testing.T) {
	h := newHarness(siteConfig(geofence.EnforcementWarn, 150))

	_, err := h.svc.Clock(context.Background(), worker, h.request(clock.EventTypeClockOut, 10))
	assert.ErrorIs(t, err, clock.ErrNoOpenTimeEntry)
	assert.Equal(t, 0, h.eventCount())
}

func TestClock_DurationIsExact(t *testing.T) {
	h := newHarness(siteConfig(geofence.EnforcementWarn, 150))
	ctx := context.Background()

	in, err := h.svc.Clock(ctx, worker, h.request(clock.EventTypeClockIn, 10))
	require.NoError(t, err)

	h.clock.Advance(7*time.Hour + 23*time.Minute + 30*time.Second)
	out, err := h.svc.Clock(ctx, worker, h.request(clock.EventTypeClockOut, 10))
	require.NoError(t, err)

	require.NotNil(t, out.TimeEntry)
	assert.False(t, out.TimeEntry.Open)
	assert.Equal(t, in.TimeEntry.ID, out.TimeEntry.ID)
	assert.Equal(t, 443.5, *out.TimeEntry.DurationMinutes)
	assert.Equal(t, out.Event.ID, *out.TimeEntry.ClockOutEventID)
	assert.Equal(t, out.Event.RecordedAt, *out.TimeEntry.ClockOut)
}

func TestClock_ExitBlockCanBeOverridden(t *testing.T) {
	cfg := siteConfig(geofence.EnforcementStrict, 150)
	cfg.AllowOverride = true
	cfg.OverrideRequiresReason = true
	h := newHarness(cfg)
	ctx := context.Background()

	_, err := h.svc.Clock(ctx, worker, h.request(clock.EventTypeClockIn, 10))
	require.NoError(t, err)

	h.clock.Advance(4 * time.Hour)
	blocked, err := h.svc.Clock(ctx, worker, h.request(clock.EventTypeClockOut, 2000))
	require.NoError(t, err)
	require.Equal(t, clock.EventStatusBlocked, blocked.Event.Status)

	resp, err := h.svc.SubmitOverride(ctx, worker, clock.OverrideRequest{
		BlockedEventID: blocked.Event.ID,
		Reason:         ptr("called to supplier"),
	})
	require.NoError(t, err)

	assert.Equal(t, clock.EventTypeClockOut, resp.Event.EventType)
	require.NotNil(t, resp.TimeEntry)
	assert.False(t, resp.TimeEntry.Open)
	assert.Equal(t, 0, h.entries.openCount(worker.UserID, jobID))
}

func TestClock_StaleAndFutureFixes(t *testing.T) {
	h := newHarness(siteConfig(geofence.EnforcementWarn, 150))
	ctx := context.Background()

	stale := h.request(clock.EventTypeClockIn, 10)
	stale.CapturedAt = h.clock.Now().Add(-3 * time.Minute).Format(time.RFC3339)
	_, err := h.svc.Clock(ctx, worker, stale)
	assert.ErrorIs(t, err, clock.ErrStaleLocation)

	future := h.request(clock.EventTypeClockIn, 10)
	future.CapturedAt = h.clock.Now().Add(10 * time.Minute).Format(time.RFC3339)
	_, err = h.svc.Clock(ctx, worker, future)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "captured_at")

	assert.Equal(t, 0, h.eventCount())
}

func TestClock_LowAccuracyRecordedUnmodified(t *testing.T) {
	h := newHarness(siteConfig(geofence.EnforcementStrict, 150))

	req := h.request(clock.EventTypeClockIn, 30)
	req.AccuracyMeters = ptr(80.0)
	resp, err := h.svc.Clock(context.Background(), worker, req)
	require.NoError(t, err)

	require.NotNil(t, resp.Event.AccuracyMeters)
	assert.Equal(t, 80.0, *resp.Event.AccuracyMeters)
}

func TestClock_UnknownJob(t *testing.T) {
	h := newHarness(siteConfig(geofence.EnforcementWarn, 150))

	req := h.request(clock.EventTypeClockIn, 10)
	req.JobID = otherJobID
	_, err := h.svc.Clock(context.Background(), worker, req)
	assert.ErrorIs(t, err, geofence.ErrJobNotFound)
	assert.Equal(t, 0, h.eventCount())
}

func TestClock_RequiresRole(t *testing.T) {
	h := newHarness(siteConfig(geofence.EnforcementWarn, 150))

	_, err := h.svc.Clock(context.Background(), user.Actor{UserID: worker.UserID, BusinessID: businessID}, h.request(clock.EventTypeClockIn, 10))
	assert.ErrorIs(t, err, user.ErrInsufficientPermissions)
}

func TestApproveOverride(t *testing.T) {
	cfg := siteConfig(geofence.EnforcementStrict, 150)
	cfg.AllowOverride = true
	h := newHarness(cfg)
	ctx := context.Background()

	blocked, err := h.svc.Clock(ctx, worker, h.request(clock.EventTypeClockIn, 300))
	require.NoError(t, err)
	override, err := h.svc.SubmitOverride(ctx, worker, clock.OverrideRequest{BlockedEventID: blocked.Event.ID, Reason: ptr("road closed")})
	require.NoError(t, err)

	_, err = h.svc.ApproveOverride(ctx, worker, clock.ApproveOverrideRequest{EventID: override.Event.ID})
	assert.ErrorIs(t, err, user.ErrManagerAccessRequired)

	_, err = h.svc.ApproveOverride(ctx, manager, clock.ApproveOverrideRequest{EventID: blocked.Event.ID})
	assert.ErrorIs(t, err, clock.ErrNotOverride)

	approval, err := h.svc.ApproveOverride(ctx, manager, clock.ApproveOverrideRequest{EventID: override.Event.ID, Notes: ptr("confirmed with dispatch")})
	require.NoError(t, err)
	assert.Equal(t, manager.UserID, approval.ApprovedBy)
	assert.Equal(t, h.clock.Now(), approval.ApprovedAt)

	_, err = h.svc.ApproveOverride(ctx, manager, clock.ApproveOverrideRequest{EventID: override.Event.ID})
	assert.ErrorIs(t, err, clock.ErrOverrideAlreadyApproved)

	ev, err := h.svc.GetEvent(ctx, manager, override.Event.ID)
	require.NoError(t, err)
	require.NotNil(t, ev.OverrideApprovedBy)
	assert.Equal(t, manager.UserID, *ev.OverrideApprovedBy)
	assert.Equal(t, 2, h.eventCount(), "approval never adds or rewrites ledger rows")
}

func TestApproveOverride_Own(t *testing.T) {
	cfg := siteConfig(geofence.EnforcementStrict, 150)
	cfg.AllowOverride = true
	h := newHarness(cfg)
	ctx := context.Background()

	blocked, err := h.svc.Clock(ctx, manager, h.request(clock.EventTypeClockIn, 300))
	require.NoError(t, err)
	override, err := h.svc.SubmitOverride(ctx, manager, clock.OverrideRequest{BlockedEventID: blocked.Event.ID, Reason: ptr("x")})
	require.NoError(t, err)

	_, err = h.svc.ApproveOverride(ctx, manager, clock.ApproveOverrideRequest{EventID: override.Event.ID})
	assert.ErrorIs(t, err, clock.ErrCannotApproveOwn)
}

func TestLedgerReads(t *testing.T) {
	cfg := siteConfig(geofence.EnforcementStrict, 150)
	cfg.AllowOverride = true
	h := newHarness(cfg)
	ctx := context.Background()

	blocked, err := h.svc.Clock(ctx, worker, h.request(clock.EventTypeClockIn, 300))
	require.NoError(t, err)
	h.clock.Advance(time.Minute)
	_, err = h.svc.SubmitOverride(ctx, worker, clock.OverrideRequest{BlockedEventID: blocked.Event.ID, Reason: ptr("x")})
	require.NoError(t, err)
	h.clock.Advance(time.Minute)
	_, err = h.svc.Clock(ctx, coworker, h.request(clock.EventTypeClockIn, 5))
	require.NoError(t, err)

	t.Run("job ledger is manager only and chronological", func(t *testing.T) {
		_, err := h.svc.ListJobEvents(ctx, worker, jobID, clock.LedgerFilter{})
		assert.ErrorIs(t, err, user.ErrManagerAccessRequired)

		list, err := h.svc.ListJobEvents(ctx, manager, jobID, clock.LedgerFilter{})
		require.NoError(t, err)
		require.Len(t, list.Events, 3)
		assert.Equal(t, int64(3), list.TotalCount)
		assert.Equal(t, "1-3 of 3", list.Showing)
		assert.Equal(t, clock.EventStatusBlocked, list.Events[0].Status)
		assert.Equal(t, clock.EventStatusOverride, list.Events[1].Status)
		assert.Equal(t, clock.EventStatusGranted, list.Events[2].Status)
	})

	t.Run("my events", func(t *testing.T) {
		list, err := h.svc.ListMyEvents(ctx, coworker, clock.LedgerFilter{})
		require.NoError(t, err)
		require.Len(t, list.Events, 1)
		assert.Equal(t, coworker.UserID, list.Events[0].UserID)
	})

	t.Run("my time entries", func(t *testing.T) {
		list, err := h.svc.ListMyTimeEntries(ctx, worker, clock.TimeEntryFilter{})
		require.NoError(t, err)
		require.Len(t, list.Entries, 1)
		assert.True(t, list.Entries[0].Open)
	})

	t.Run("summary", func(t *testing.T) {
		_, err := h.svc.Summary(ctx, worker, clock.SummaryFilter{})
		assert.ErrorIs(t, err, user.ErrManagerAccessRequired)

		s, err := h.svc.Summary(ctx, manager, clock.SummaryFilter{})
		require.NoError(t, err)
		// The blocked attempt and its override are one attempt.
		assert.Equal(t, int64(2), s.TotalEvents)
		assert.Equal(t, int64(1), s.ViolationCount)
		assert.Equal(t, int64(1), s.OverrideCount)
		assert.Equal(t, int64(1), s.BlockedCount)
		assert.Equal(t, int64(1), s.PendingApprovalCount)
	})

	t.Run("event visibility", func(t *testing.T) {
		_, err := h.svc.GetEvent(ctx, coworker, blocked.Event.ID)
		assert.ErrorIs(t, err, clock.ErrUnauthorized)

		ev, err := h.svc.GetEvent(ctx, worker, blocked.Event.ID)
		require.NoError(t, err)
		assert.Equal(t, blocked.Event.ID, ev.ID)

		_, err = h.svc.GetEvent(ctx, manager, "not-a-uuid")
		assert.ErrorIs(t, err, clock.ErrEventNotFound)
	})
}

func TestClock_ObservesTransactionLatencyWithFrozenClock(t *testing.T) {
	h := newHarness(siteConfig(geofence.EnforcementWarn, 150))
	reg := prometheus.NewRegistry()
	h.svc = NewClockService(
		h.store,
		h.events,
		h.entries,
		fakeApprovals{h.store},
		h.configs,
		h.broadcast,
		metrics.New(reg),
		Config{LocationMaxAge: 2 * time.Minute, OverrideWindow: 5 * time.Minute},
		h.clock.Now,
	)
	frozen := h.clock.Now()

	resp, err := h.svc.Clock(context.Background(), worker, h.request(clock.EventTypeClockIn, 20))
	require.NoError(t, err)
	assert.Equal(t, frozen, resp.Event.RecordedAt)

	families, err := reg.Gather()
	require.NoError(t, err)
	var samples uint64
	for _, mf := range families {
		if mf.GetName() == "geoclock_clock_transaction_seconds" {
			samples = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(1), samples)
}
