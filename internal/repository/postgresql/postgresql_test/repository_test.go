package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSetup *TestDatabaseSetup

func TestMain(m *testing.M) {
	setup, ok, err := NewTestDatabase(context.Background())
	if !ok {
		fmt.Println("TEST_DATABASE_URL not set, skipping repository integration tests")
		os.Exit(0)
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	testSetup = setup

	code := m.Run()
	testSetup.Close()
	os.Exit(code)
}

func setupTestData(t *testing.T) {
	t.Helper()
	require.NoError(t, testSetup.TruncateAllTables(context.Background()))
}

func newID(t *testing.T) string {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id.String()
}

func ptr[T any](v T) *T { return &v }

// createTestJobSite inserts a geocoded job and returns its id.
func createTestJobSite(t *testing.T, ctx context.Context, businessID string, mode *geofence.EnforcementMode) string {
	t.Helper()
	jobID := newID(t)
	_, err := testSetup.DB.Exec(ctx, `
		INSERT INTO job_sites (job_id, business_id, name, latitude, longitude, radius_meters, enforcement_mode)
		VALUES ($1, $2, 'Warehouse 7', 40.712776, -74.005974, 150, $3)
	`, jobID, businessID, mode)
	require.NoError(t, err)
	return jobID
}

func newTestEvent(t *testing.T, businessID, jobID, userID string, eventType clock.EventType, status clock.EventStatus, at time.Time) clock.ClockEvent {
	t.Helper()
	within := status != clock.EventStatusBlocked && status != clock.EventStatusOverride
	return clock.ClockEvent{
		ID:                    newID(t),
		BusinessID:            businessID,
		JobID:                 jobID,
		UserID:                userID,
		EventType:             eventType,
		RecordedAt:            at,
		Latitude:              ptr(40.7128),
		Longitude:             ptr(-74.0060),
		AccuracyMeters:        ptr(12.0),
		LocationCapturedAt:    ptr(at.Add(-5 * time.Second)),
		WithinGeofence:        &within,
		DistanceFromJobMeters: ptr(20.0),
		GeofenceRadiusMeters:  150,
		EnforcementMode:       geofence.EnforcementStrict,
		CanOverride:           status == clock.EventStatusBlocked,
		Status:                status,
	}
}

func TestJobSiteRepository_GetAndExpand(t *testing.T) {
	setupTestData(t)
	ctx := context.Background()
	repo := postgresql.NewJobSiteRepository(testSetup.DB)

	businessID := newID(t)
	strict := geofence.EnforcementStrict
	jobID := createTestJobSite(t, ctx, businessID, &strict)

	job, err := repo.GetByJobID(ctx, businessID, jobID)
	require.NoError(t, err)
	assert.True(t, job.HasLocation())
	require.NotNil(t, job.EnforcementMode)
	assert.Equal(t, geofence.EnforcementStrict, *job.EnforcementMode)
	assert.Nil(t, job.ExpandedUntil)

	_, err = repo.GetByJobID(ctx, newID(t), jobID)
	assert.ErrorIs(t, err, geofence.ErrJobNotFound)

	until := time.Now().Add(4 * time.Hour).UTC().Truncate(time.Microsecond)
	managerID := newID(t)
	expanded, err := repo.UpdateExpansion(ctx, businessID, jobID, 400, until, managerID)
	require.NoError(t, err)
	require.NotNil(t, expanded.ExpandedRadiusMeters)
	assert.Equal(t, 400.0, *expanded.ExpandedRadiusMeters)
	assert.True(t, until.Equal(*expanded.ExpandedUntil))
	assert.Equal(t, managerID, *expanded.ExpandedBy)
}

func TestBusinessSettingsRepository_DefaultsWhenMissing(t *testing.T) {
	setupTestData(t)
	ctx := context.Background()
	repo := postgresql.NewBusinessSettingsRepository(testSetup.DB)

	businessID := newID(t)
	settings, err := repo.GetByBusinessID(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, geofence.DefaultBusinessSettings(businessID), settings)

	_, err = testSetup.DB.Exec(ctx, `
		INSERT INTO business_settings (business_id, default_radius_meters, default_enforcement_mode, allow_override)
		VALUES ($1, 250, 'strict', FALSE)
	`, businessID)
	require.NoError(t, err)

	settings, err = repo.GetByBusinessID(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, geofence.EnforcementStrict, settings.DefaultEnforcementMode)
	assert.False(t, settings.AllowOverride)
	require.NotNil(t, settings.DefaultRadiusMeters)
	assert.Equal(t, 250.0, *settings.DefaultRadiusMeters)
}

func TestClockEventRepository_AppendOnlyLedger(t *testing.T) {
	setupTestData(t)
	ctx := context.Background()
	repo := postgresql.NewClockEventRepository(testSetup.DB)

	businessID, userID := newID(t), newID(t)
	jobID := createTestJobSite(t, ctx, businessID, nil)
	at := time.Now().UTC().Truncate(time.Microsecond)

	blocked := newTestEvent(t, businessID, jobID, userID, clock.EventTypeClockIn, clock.EventStatusBlocked, at)
	_, err := repo.Append(ctx, blocked)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, businessID, blocked.ID)
	require.NoError(t, err)
	assert.Equal(t, clock.EventStatusBlocked, got.Status)
	assert.True(t, got.IsViolation())
	assert.Nil(t, got.OverrideApprovedBy)

	_, err = repo.GetOverrideOf(ctx, businessID, blocked.ID)
	assert.ErrorIs(t, err, clock.ErrEventNotFound)

	override := newTestEvent(t, businessID, jobID, userID, clock.EventTypeClockIn, clock.EventStatusOverride, at.Add(time.Minute))
	override.OverrideOfEventID = &blocked.ID
	override.OverrideReason = ptr("parking restricted")
	_, err = repo.Append(ctx, override)
	require.NoError(t, err)

	second := newTestEvent(t, businessID, jobID, userID, clock.EventTypeClockIn, clock.EventStatusOverride, at.Add(2*time.Minute))
	second.OverrideOfEventID = &blocked.ID
	_, err = repo.Append(ctx, second)
	assert.ErrorIs(t, err, clock.ErrAlreadyOverridden)

	linked, err := repo.GetOverrideOf(ctx, businessID, blocked.ID)
	require.NoError(t, err)
	assert.Equal(t, override.ID, linked.ID)

	_, err = testSetup.DB.Exec(ctx, `UPDATE clock_events SET status = 'granted' WHERE id = $1`, blocked.ID)
	assert.Error(t, err)
	_, err = testSetup.DB.Exec(ctx, `DELETE FROM clock_events WHERE id = $1`, blocked.ID)
	assert.Error(t, err)
}

func TestClockEventRepository_ListAndSummary(t *testing.T) {
	setupTestData(t)
	ctx := context.Background()
	repo := postgresql.NewClockEventRepository(testSetup.DB)
	approvals := postgresql.NewOverrideApprovalRepository(testSetup.DB)

	businessID, userID := newID(t), newID(t)
	jobID := createTestJobSite(t, ctx, businessID, nil)
	at := time.Now().UTC().Truncate(time.Microsecond)

	blocked := newTestEvent(t, businessID, jobID, userID, clock.EventTypeClockIn, clock.EventStatusBlocked, at)
	_, err := repo.Append(ctx, blocked)
	require.NoError(t, err)
	override := newTestEvent(t, businessID, jobID, userID, clock.EventTypeClockIn, clock.EventStatusOverride, at.Add(time.Minute))
	override.OverrideOfEventID = &blocked.ID
	override.OverrideReason = ptr("gate locked")
	_, err = repo.Append(ctx, override)
	require.NoError(t, err)
	_, err = repo.Append(ctx, newTestEvent(t, businessID, jobID, userID, clock.EventTypeClockOut, clock.EventStatusGranted, at.Add(time.Hour)))
	require.NoError(t, err)

	events, total, err := repo.ListByJob(ctx, businessID, jobID, clock.LedgerFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, events, 2)
	assert.Equal(t, blocked.ID, events[0].ID)
	assert.Equal(t, override.ID, events[1].ID)

	status := string(clock.EventStatusGranted)
	events, total, err = repo.ListByUser(ctx, businessID, userID, clock.LedgerFilter{Status: &status, Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, events, 1)
	assert.Equal(t, clock.EventTypeClockOut, events[0].EventType)

	summary, err := repo.Summary(ctx, businessID, clock.SummaryFilter{JobID: &jobID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalEvents)
	assert.Equal(t, int64(1), summary.ViolationCount)
	assert.Equal(t, int64(1), summary.BlockedCount)
	assert.Equal(t, int64(1), summary.OverrideCount)
	assert.Equal(t, int64(1), summary.PendingApprovalCount)

	approval := clock.OverrideApproval{EventID: override.ID, BusinessID: businessID, ApprovedBy: newID(t), ApprovedAt: at.Add(2 * time.Hour)}
	_, err = approvals.Create(ctx, approval)
	require.NoError(t, err)
	_, err = approvals.Create(ctx, approval)
	assert.ErrorIs(t, err, clock.ErrOverrideAlreadyApproved)

	got, err := repo.GetByID(ctx, businessID, override.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OverrideApprovedBy)
	assert.Equal(t, approval.ApprovedBy, *got.OverrideApprovedBy)

	summary, err = repo.Summary(ctx, businessID, clock.SummaryFilter{JobID: &jobID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.PendingApprovalCount)
}

func TestTimeEntryRepository_OpenCloseLifecycle(t *testing.T) {
	setupTestData(t)
	ctx := context.Background()
	events := postgresql.NewClockEventRepository(testSetup.DB)
	repo := postgresql.NewTimeEntryRepository(testSetup.DB)

	businessID, userID := newID(t), newID(t)
	jobID := createTestJobSite(t, ctx, businessID, nil)
	clockIn := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	in := newTestEvent(t, businessID, jobID, userID, clock.EventTypeClockIn, clock.EventStatusGranted, clockIn)
	_, err := events.Append(ctx, in)
	require.NoError(t, err)

	_, err = repo.GetOpen(ctx, businessID, userID, jobID)
	assert.ErrorIs(t, err, clock.ErrNoOpenTimeEntry)

	entry := clock.TimeEntry{ID: newID(t), BusinessID: businessID, JobID: jobID, UserID: userID, ClockIn: clockIn, ClockInEventID: in.ID}
	_, err = repo.Open(ctx, entry)
	require.NoError(t, err)

	dup := entry
	dup.ID = newID(t)
	_, err = repo.Open(ctx, dup)
	assert.ErrorIs(t, err, clock.ErrAlreadyClockedIn)

	stale, err := repo.ListOpenOlderThan(ctx, clockIn.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, entry.ID, stale[0].ID)

	clockOut := clockIn.Add(443*time.Minute + 30*time.Second)
	out := newTestEvent(t, businessID, jobID, userID, clock.EventTypeClockOut, clock.EventStatusGranted, clockOut)
	_, err = events.Append(ctx, out)
	require.NoError(t, err)

	closed, err := repo.Close(ctx, businessID, entry.ID, clockOut, out.ID, clock.DurationMinutes(clockIn, clockOut))
	require.NoError(t, err)
	assert.False(t, closed.IsOpen())
	require.NotNil(t, closed.DurationMinutes)
	assert.InDelta(t, 443.5, *closed.DurationMinutes, 1e-9)

	_, err = repo.Close(ctx, businessID, entry.ID, clockOut, out.ID, 0)
	assert.ErrorIs(t, err, clock.ErrNoOpenTimeEntry)

	list, total, err := repo.ListByUser(ctx, businessID, userID, clock.TimeEntryFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)

	_, total, err = repo.ListByUser(ctx, businessID, userID, clock.TimeEntryFilter{OpenOnly: true, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
