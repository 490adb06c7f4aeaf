package clock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/validator"
	geofenceService "github.com/cmlabs-hris/geoclock-backend-go/internal/service/geofence"
	"github.com/google/uuid"
)

// futureFixTolerance absorbs small clock differences between device and server.
const futureFixTolerance = time.Minute

// Config holds clock service configuration
type Config struct {
	LocationMaxAge time.Duration // default: 2m
	OverrideWindow time.Duration // default: 5m
}

// ConfigProvider resolves the geofence of a job.
type ConfigProvider interface {
	GetConfig(ctx context.Context, businessID, jobID string) (geofence.GeofenceConfig, error)
}

type ClockServiceImpl struct {
	tx database.Transactor
	clock.ClockEventRepository
	clock.TimeEntryRepository
	clock.OverrideApprovalRepository
	geofences   ConfigProvider
	broadcaster clock.Broadcaster
	metrics     *metrics.Metrics
	config      Config
	now         func() time.Time
}

// NewClockService creates the clock service. broadcaster and m may be nil.
func NewClockService(
	tx database.Transactor,
	eventRepo clock.ClockEventRepository,
	entryRepo clock.TimeEntryRepository,
	approvalRepo clock.OverrideApprovalRepository,
	geofences ConfigProvider,
	broadcaster clock.Broadcaster,
	m *metrics.Metrics,
	cfg Config,
	now func() time.Time,
) *ClockServiceImpl {
	if cfg.LocationMaxAge <= 0 {
		cfg.LocationMaxAge = 2 * time.Minute
	}
	if cfg.OverrideWindow <= 0 {
		cfg.OverrideWindow = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &ClockServiceImpl{
		tx:                         tx,
		ClockEventRepository:       eventRepo,
		TimeEntryRepository:        entryRepo,
		OverrideApprovalRepository: approvalRepo,
		geofences:                  geofences,
		broadcaster:                broadcaster,
		metrics:                    m,
		config:                     cfg,
		now:                        now,
	}
}

// Clock implements clock.ClockService.
func (s *ClockServiceImpl) Clock(ctx context.Context, actor user.Actor, req clock.ClockRequest) (clock.ClockResponse, error) {
	if !actor.Can(user.PermissionClockSelf) {
		return clock.ClockResponse{}, user.ErrInsufficientPermissions
	}
	if err := req.Validate(); err != nil {
		return clock.ClockResponse{}, err
	}

	now := s.now().UTC()
	sample := req.Sample()
	eventType := clock.EventType(req.EventType)

	if sample.CapturedAt.After(now.Add(futureFixTolerance)) {
		return clock.ClockResponse{}, validator.ValidationErrors{{
			Field:   "captured_at",
			Message: "captured_at must not be in the future",
		}}
	}
	if sample.Age(now) > s.config.LocationMaxAge {
		s.metrics.AttemptRejected("stale_location")
		return clock.ClockResponse{}, clock.ErrStaleLocation
	}

	// Latency is wall-clock time; s.now is the business clock.
	started := time.Now()
	var (
		event   clock.ClockEvent
		verdict geofence.Verdict
		entry   *clock.TimeEntry
	)

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		cfg, err := s.geofences.GetConfig(txCtx, actor.BusinessID, req.JobID)
		if err != nil {
			return err
		}

		open, err := s.checkTimeEntryPrecondition(txCtx, actor, req.JobID, eventType)
		if err != nil {
			return err
		}

		verdict = geofenceService.Validate(sample, cfg, now)

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate clock event id: %w", err)
		}
		event = newClockEvent(id.String(), actor, req.JobID, eventType, sample, verdict, now)

		event, err = s.ClockEventRepository.Append(txCtx, event)
		if err != nil {
			return fmt.Errorf("failed to append clock event: %w", err)
		}

		if !event.Status.AdmitsTimeEntry() {
			return nil
		}
		entry, err = s.applyTimeEntry(txCtx, event, open)
		return err
	})
	if err != nil {
		s.recordRejection(err)
		return clock.ClockResponse{}, err
	}

	s.metrics.ObserveTransaction(time.Since(started))
	s.afterCommit(event, verdict)

	return clock.ClockResponse{
		Event:     clock.NewClockEventResponse(event),
		Verdict:   verdict,
		TimeEntry: timeEntryResponse(entry),
		Message:   clockMessage(event, verdict),
	}, nil
}

// SubmitOverride implements clock.ClockService.
func (s *ClockServiceImpl) SubmitOverride(ctx context.Context, actor user.Actor, req clock.OverrideRequest) (clock.ClockResponse, error) {
	if !actor.Can(user.PermissionClockSelf) {
		return clock.ClockResponse{}, user.ErrInsufficientPermissions
	}
	if err := req.Validate(); err != nil {
		return clock.ClockResponse{}, err
	}

	now := s.now().UTC()
	var (
		event   clock.ClockEvent
		blocked clock.ClockEvent
		entry   *clock.TimeEntry
	)

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		blocked, err = s.ClockEventRepository.GetByID(txCtx, actor.BusinessID, req.BlockedEventID)
		if err != nil {
			return err
		}
		if blocked.UserID != actor.UserID {
			return clock.ErrUnauthorized
		}
		if blocked.Status != clock.EventStatusBlocked {
			return clock.ErrNotBlocked
		}
		if !blocked.CanOverride {
			return clock.ErrOverrideNotAllowed
		}

		_, err = s.ClockEventRepository.GetOverrideOf(txCtx, actor.BusinessID, blocked.ID)
		switch {
		case err == nil:
			return clock.ErrAlreadyOverridden
		case !errors.Is(err, clock.ErrEventNotFound):
			return fmt.Errorf("failed to look up existing override: %w", err)
		}

		if now.Sub(attemptTime(blocked)) > s.config.OverrideWindow {
			return clock.ErrStaleAttempt
		}

		// Requirement flags are the ones frozen on the blocked row.
		if blocked.OverrideRequiresReason && validator.IsBlank(req.Reason) {
			return clock.ErrOverrideReasonRequired
		}
		if blocked.OverrideRequiresPhoto && validator.IsBlank(req.PhotoURL) {
			return clock.ErrOverridePhotoRequired
		}

		open, err := s.checkTimeEntryPrecondition(txCtx, actor, blocked.JobID, blocked.EventType)
		if err != nil {
			return err
		}

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate clock event id: %w", err)
		}
		event = newOverrideEvent(id.String(), blocked, nonBlank(req.Reason), nonBlank(req.PhotoURL), now)

		event, err = s.ClockEventRepository.Append(txCtx, event)
		if err != nil {
			return fmt.Errorf("failed to append override event: %w", err)
		}

		entry, err = s.applyTimeEntry(txCtx, event, open)
		return err
	})
	if err != nil {
		s.recordRejection(err)
		return clock.ClockResponse{}, err
	}

	verdict := verdictOf(event)
	s.afterCommit(event, verdict)

	return clock.ClockResponse{
		Event:     clock.NewClockEventResponse(event),
		Verdict:   verdict,
		TimeEntry: timeEntryResponse(entry),
		Message:   clockMessage(event, verdict),
	}, nil
}

// ApproveOverride implements clock.ClockService.
func (s *ClockServiceImpl) ApproveOverride(ctx context.Context, actor user.Actor, req clock.ApproveOverrideRequest) (clock.ApprovalResponse, error) {
	if !actor.Can(user.PermissionOverrideApprove) {
		return clock.ApprovalResponse{}, user.ErrManagerAccessRequired
	}
	if err := req.Validate(); err != nil {
		return clock.ApprovalResponse{}, err
	}

	var approval clock.OverrideApproval
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		event, err := s.ClockEventRepository.GetByID(txCtx, actor.BusinessID, req.EventID)
		if err != nil {
			return err
		}
		if event.Status != clock.EventStatusOverride {
			return clock.ErrNotOverride
		}
		if event.UserID == actor.UserID {
			return clock.ErrCannotApproveOwn
		}
		if event.OverrideApprovedBy != nil {
			return clock.ErrOverrideAlreadyApproved
		}

		approval, err = s.OverrideApprovalRepository.Create(txCtx, clock.OverrideApproval{
			EventID:    event.ID,
			BusinessID: actor.BusinessID,
			ApprovedBy: actor.UserID,
			ApprovedAt: s.now().UTC(),
			Notes:      nonBlank(req.Notes),
		})
		return err
	})
	if err != nil {
		return clock.ApprovalResponse{}, err
	}

	s.metrics.OverrideApproved()
	slog.Info("Override approved",
		"business_id", actor.BusinessID,
		"event_id", approval.EventID,
		"approved_by", approval.ApprovedBy,
	)

	return clock.ApprovalResponse{
		EventID:    approval.EventID,
		ApprovedBy: approval.ApprovedBy,
		ApprovedAt: approval.ApprovedAt,
		Notes:      approval.Notes,
	}, nil
}

// GetEvent implements clock.ClockService.
func (s *ClockServiceImpl) GetEvent(ctx context.Context, actor user.Actor, eventID string) (clock.ClockEventResponse, error) {
	if !validator.IsValidUUID(eventID) {
		return clock.ClockEventResponse{}, clock.ErrEventNotFound
	}

	event, err := s.ClockEventRepository.GetByID(ctx, actor.BusinessID, eventID)
	if err != nil {
		return clock.ClockEventResponse{}, err
	}
	if event.UserID != actor.UserID && !actor.Can(user.PermissionClockViewAll) {
		return clock.ClockEventResponse{}, clock.ErrUnauthorized
	}

	return clock.NewClockEventResponse(event), nil
}

// ListJobEvents implements clock.ClockService.
func (s *ClockServiceImpl) ListJobEvents(ctx context.Context, actor user.Actor, jobID string, filter clock.LedgerFilter) (clock.ListClockEventResponse, error) {
	if !actor.Can(user.PermissionClockViewAll) {
		return clock.ListClockEventResponse{}, user.ErrManagerAccessRequired
	}
	if err := filter.Validate(); err != nil {
		return clock.ListClockEventResponse{}, err
	}

	events, total, err := s.ClockEventRepository.ListByJob(ctx, actor.BusinessID, jobID, filter)
	if err != nil {
		return clock.ListClockEventResponse{}, fmt.Errorf("failed to list job clock events: %w", err)
	}

	return eventList(events, total, filter), nil
}

// ListMyEvents implements clock.ClockService.
func (s *ClockServiceImpl) ListMyEvents(ctx context.Context, actor user.Actor, filter clock.LedgerFilter) (clock.ListClockEventResponse, error) {
	if !actor.Can(user.PermissionClockViewOwn) {
		return clock.ListClockEventResponse{}, user.ErrInsufficientPermissions
	}
	if err := filter.Validate(); err != nil {
		return clock.ListClockEventResponse{}, err
	}

	events, total, err := s.ClockEventRepository.ListByUser(ctx, actor.BusinessID, actor.UserID, filter)
	if err != nil {
		return clock.ListClockEventResponse{}, fmt.Errorf("failed to list user clock events: %w", err)
	}

	return eventList(events, total, filter), nil
}

// ListMyTimeEntries implements clock.ClockService.
func (s *ClockServiceImpl) ListMyTimeEntries(ctx context.Context, actor user.Actor, filter clock.TimeEntryFilter) (clock.ListTimeEntryResponse, error) {
	if !actor.Can(user.PermissionClockViewOwn) {
		return clock.ListTimeEntryResponse{}, user.ErrInsufficientPermissions
	}
	if err := filter.Validate(); err != nil {
		return clock.ListTimeEntryResponse{}, err
	}

	entries, total, err := s.TimeEntryRepository.ListByUser(ctx, actor.BusinessID, actor.UserID, filter)
	if err != nil {
		return clock.ListTimeEntryResponse{}, fmt.Errorf("failed to list time entries: %w", err)
	}

	responses := make([]clock.TimeEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = clock.NewTimeEntryResponse(e)
	}

	return clock.ListTimeEntryResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: clock.TotalPages(total, filter.Limit),
		Showing:    clock.Showing(filter.Page, filter.Limit, len(entries), total),
		Entries:    responses,
	}, nil
}

// Summary implements clock.ClockService.
func (s *ClockServiceImpl) Summary(ctx context.Context, actor user.Actor, filter clock.SummaryFilter) (clock.LedgerSummary, error) {
	if !actor.Can(user.PermissionClockViewAll) {
		return clock.LedgerSummary{}, user.ErrManagerAccessRequired
	}
	if err := filter.Validate(); err != nil {
		return clock.LedgerSummary{}, err
	}

	summary, err := s.ClockEventRepository.Summary(ctx, actor.BusinessID, filter)
	if err != nil {
		return clock.LedgerSummary{}, fmt.Errorf("failed to summarize clock events: %w", err)
	}
	return summary, nil
}

// checkTimeEntryPrecondition rejects a double clock-in and a clock-out
// without an open entry. For a clock-out it returns the entry to close.
func (s *ClockServiceImpl) checkTimeEntryPrecondition(ctx context.Context, actor user.Actor, jobID string, eventType clock.EventType) (*clock.TimeEntry, error) {
	open, err := s.TimeEntryRepository.GetOpen(ctx, actor.BusinessID, actor.UserID, jobID)
	switch {
	case err == nil:
		if eventType == clock.EventTypeClockIn {
			return nil, clock.ErrAlreadyClockedIn
		}
		return &open, nil
	case errors.Is(err, clock.ErrNoOpenTimeEntry):
		if eventType == clock.EventTypeClockOut {
			return nil, clock.ErrNoOpenTimeEntry
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("failed to get open time entry: %w", err)
	}
}

// applyTimeEntry opens an entry for a clock-in or closes open for a clock-out.
func (s *ClockServiceImpl) applyTimeEntry(ctx context.Context, event clock.ClockEvent, open *clock.TimeEntry) (*clock.TimeEntry, error) {
	if event.EventType == clock.EventTypeClockIn {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate time entry id: %w", err)
		}
		created, err := s.TimeEntryRepository.Open(ctx, clock.TimeEntry{
			ID:             id.String(),
			BusinessID:     event.BusinessID,
			JobID:          event.JobID,
			UserID:         event.UserID,
			ClockIn:        event.RecordedAt,
			ClockInEventID: event.ID,
		})
		if err != nil {
			return nil, err
		}
		return &created, nil
	}

	duration := clock.DurationMinutes(open.ClockIn, event.RecordedAt)
	closed, err := s.TimeEntryRepository.Close(ctx, event.BusinessID, open.ID, event.RecordedAt, event.ID, duration)
	if err != nil {
		return nil, err
	}
	return &closed, nil
}

func (s *ClockServiceImpl) afterCommit(event clock.ClockEvent, verdict geofence.Verdict) {
	s.metrics.ClockEventRecorded(string(event.EventType), string(event.Status))
	if verdict.DistanceMeters != nil && verdict.WithinGeofence != nil {
		s.metrics.ObserveDistance(*verdict.DistanceMeters, *verdict.WithinGeofence)
	}

	if verdict.NoJobLocation {
		slog.Warn("Clock event recorded for job without coordinates",
			"business_id", event.BusinessID,
			"job_id", event.JobID,
			"user_id", event.UserID,
			"event_id", event.ID,
		)
	}

	slog.Info("Clock event recorded",
		"business_id", event.BusinessID,
		"job_id", event.JobID,
		"user_id", event.UserID,
		"event_id", event.ID,
		"event_type", event.EventType,
		"status", event.Status,
	)

	if s.broadcaster != nil {
		s.broadcaster.ClockEventRecorded(event)
	}
}

func (s *ClockServiceImpl) recordRejection(err error) {
	switch {
	case errors.Is(err, clock.ErrAlreadyClockedIn):
		s.metrics.AttemptRejected("already_clocked_in")
	case errors.Is(err, clock.ErrNoOpenTimeEntry):
		s.metrics.AttemptRejected("no_open_time_entry")
	case errors.Is(err, clock.ErrStaleAttempt):
		s.metrics.AttemptRejected("stale_attempt")
	case errors.Is(err, geofence.ErrJobNotFound):
		s.metrics.AttemptRejected("job_not_found")
	}
}

func newClockEvent(id string, actor user.Actor, jobID string, eventType clock.EventType, sample geofence.LocationSample, verdict geofence.Verdict, now time.Time) clock.ClockEvent {
	lat, lon, capturedAt := sample.Latitude, sample.Longitude, sample.CapturedAt.UTC()

	event := clock.ClockEvent{
		ID:                     id,
		BusinessID:             actor.BusinessID,
		JobID:                  jobID,
		UserID:                 actor.UserID,
		EventType:              eventType,
		RecordedAt:             now,
		Latitude:               &lat,
		Longitude:              &lon,
		AccuracyMeters:         sample.AccuracyMeters,
		LocationCapturedAt:     &capturedAt,
		WithinGeofence:         verdict.WithinGeofence,
		DistanceFromJobMeters:  verdict.DistanceMeters,
		GeofenceRadiusMeters:   verdict.EffectiveRadiusMeters,
		RadiusExpanded:         verdict.RadiusExpanded,
		EnforcementMode:        verdict.EnforcementMode,
		CanOverride:            verdict.CanOverride,
		OverrideRequiresReason: verdict.OverrideRequiresReason,
		OverrideRequiresPhoto:  verdict.OverrideRequiresPhoto,
		Status:                 clock.StatusFromOutcome(verdict.Outcome),
	}
	if verdict.NoJobLocation {
		note := geofence.AuditNoteJobLocationMissing
		event.AuditNote = &note
	}
	return event
}

// newOverrideEvent re-admits blocked as a new ledger row. Location and the
// frozen verdict are copied so the override is auditable on its own.
func newOverrideEvent(id string, blocked clock.ClockEvent, reason, photoURL *string, now time.Time) clock.ClockEvent {
	blockedID := blocked.ID
	return clock.ClockEvent{
		ID:                     id,
		BusinessID:             blocked.BusinessID,
		JobID:                  blocked.JobID,
		UserID:                 blocked.UserID,
		EventType:              blocked.EventType,
		RecordedAt:             now,
		Latitude:               blocked.Latitude,
		Longitude:              blocked.Longitude,
		AccuracyMeters:         blocked.AccuracyMeters,
		LocationCapturedAt:     blocked.LocationCapturedAt,
		WithinGeofence:         blocked.WithinGeofence,
		DistanceFromJobMeters:  blocked.DistanceFromJobMeters,
		GeofenceRadiusMeters:   blocked.GeofenceRadiusMeters,
		RadiusExpanded:         blocked.RadiusExpanded,
		EnforcementMode:        blocked.EnforcementMode,
		CanOverride:            blocked.CanOverride,
		OverrideRequiresReason: blocked.OverrideRequiresReason,
		OverrideRequiresPhoto:  blocked.OverrideRequiresPhoto,
		Status:                 clock.EventStatusOverride,
		OverrideOfEventID:      &blockedID,
		OverrideReason:         reason,
		OverridePhotoURL:       photoURL,
	}
}

// attemptTime is when the blocked attempt's location was observed.
func attemptTime(e clock.ClockEvent) time.Time {
	if e.LocationCapturedAt != nil {
		return *e.LocationCapturedAt
	}
	return e.RecordedAt
}

// verdictOf rebuilds the verdict an event was recorded with.
func verdictOf(e clock.ClockEvent) geofence.Verdict {
	outcome := geofence.OutcomeGranted
	switch e.Status {
	case clock.EventStatusWarned:
		outcome = geofence.OutcomeWarned
	case clock.EventStatusBlocked:
		outcome = geofence.OutcomeBlocked
	}
	return geofence.Verdict{
		Outcome:                outcome,
		WithinGeofence:         e.WithinGeofence,
		DistanceMeters:         e.DistanceFromJobMeters,
		EffectiveRadiusMeters:  e.GeofenceRadiusMeters,
		RadiusExpanded:         e.RadiusExpanded,
		EnforcementMode:        e.EnforcementMode,
		CanOverride:            e.CanOverride,
		OverrideRequiresReason: e.OverrideRequiresReason,
		OverrideRequiresPhoto:  e.OverrideRequiresPhoto,
		NoJobLocation:          e.AuditNote != nil && *e.AuditNote == geofence.AuditNoteJobLocationMissing,
		ValidatedAt:            e.RecordedAt,
	}
}

func clockMessage(e clock.ClockEvent, v geofence.Verdict) string {
	action := "Clocked in"
	if e.EventType == clock.EventTypeClockOut {
		action = "Clocked out"
	}

	switch e.Status {
	case clock.EventStatusOverride:
		return action + " with override"
	case clock.EventStatusWarned:
		return action + " outside the job geofence"
	case clock.EventStatusBlocked:
		if v.CanOverride {
			return "Outside the job geofence, submit an override to continue"
		}
		return "Outside the job geofence, clock action not permitted"
	}
	if v.NoJobLocation {
		return action + ", job location is not set"
	}
	return action
}

func eventList(events []clock.ClockEvent, total int64, filter clock.LedgerFilter) clock.ListClockEventResponse {
	responses := make([]clock.ClockEventResponse, len(events))
	for i, e := range events {
		responses[i] = clock.NewClockEventResponse(e)
	}
	return clock.ListClockEventResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: clock.TotalPages(total, filter.Limit),
		Showing:    clock.Showing(filter.Page, filter.Limit, len(events), total),
		Events:     responses,
	}
}

func timeEntryResponse(e *clock.TimeEntry) *clock.TimeEntryResponse {
	if e == nil {
		return nil
	}
	resp := clock.NewTimeEntryResponse(*e)
	return &resp
}

func nonBlank(s *string) *string {
	if validator.IsBlank(s) {
		return nil
	}
	return s
}

var _ clock.ClockService = (*ClockServiceImpl)(nil)
