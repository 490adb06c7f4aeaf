package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

// clockEventRepository is the ledger. Rows are inserted and read, never
// updated or deleted; a trigger on clock_events enforces the same.
type clockEventRepository struct {
	db *database.DB
}

const clockEventColumns = `
	e.id, e.business_id, e.job_id, e.user_id, e.event_type, e.recorded_at,
	e.latitude, e.longitude, e.accuracy_meters, e.location_captured_at,
	e.within_geofence, e.distance_from_job_meters, e.geofence_radius_meters, e.radius_expanded,
	e.enforcement_mode, e.can_override, e.override_requires_reason, e.override_requires_photo,
	e.status, e.override_of_event_id, e.override_reason, e.override_photo_url, e.audit_note,
	a.approved_by, a.approved_at`

const clockEventFrom = `
	FROM clock_events e
	LEFT JOIN clock_event_approvals a ON a.event_id = e.id`

func scanClockEvent(row pgx.Row) (clock.ClockEvent, error) {
	var e clock.ClockEvent
	err := row.Scan(
		&e.ID, &e.BusinessID, &e.JobID, &e.UserID, &e.EventType, &e.RecordedAt,
		&e.Latitude, &e.Longitude, &e.AccuracyMeters, &e.LocationCapturedAt,
		&e.WithinGeofence, &e.DistanceFromJobMeters, &e.GeofenceRadiusMeters, &e.RadiusExpanded,
		&e.EnforcementMode, &e.CanOverride, &e.OverrideRequiresReason, &e.OverrideRequiresPhoto,
		&e.Status, &e.OverrideOfEventID, &e.OverrideReason, &e.OverridePhotoURL, &e.AuditNote,
		&e.OverrideApprovedBy, &e.OverrideApprovedAt,
	)
	return e, err
}

// Append implements clock.ClockEventRepository.
func (r *clockEventRepository) Append(ctx context.Context, e clock.ClockEvent) (clock.ClockEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO clock_events (
			id, business_id, job_id, user_id, event_type, recorded_at,
			latitude, longitude, accuracy_meters, location_captured_at,
			within_geofence, distance_from_job_meters, geofence_radius_meters, radius_expanded,
			enforcement_mode, can_override, override_requires_reason, override_requires_photo,
			status, override_of_event_id, override_reason, override_photo_url, audit_note
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23
		)
	`

	_, err := q.Exec(ctx, query,
		e.ID, e.BusinessID, e.JobID, e.UserID, e.EventType, e.RecordedAt,
		e.Latitude, e.Longitude, e.AccuracyMeters, e.LocationCapturedAt,
		e.WithinGeofence, e.DistanceFromJobMeters, e.GeofenceRadiusMeters, e.RadiusExpanded,
		e.EnforcementMode, e.CanOverride, e.OverrideRequiresReason, e.OverrideRequiresPhoto,
		e.Status, e.OverrideOfEventID, e.OverrideReason, e.OverridePhotoURL, e.AuditNote,
	)
	if err != nil {
		if isUniqueViolation(err, "clock_events_override_once") {
			return clock.ClockEvent{}, clock.ErrAlreadyOverridden
		}
		return clock.ClockEvent{}, fmt.Errorf("failed to insert clock event: %w", err)
	}

	return e, nil
}

// GetByID implements clock.ClockEventRepository.
func (r *clockEventRepository) GetByID(ctx context.Context, businessID, id string) (clock.ClockEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + clockEventColumns + clockEventFrom + `
		WHERE e.id = $1 AND e.business_id = $2
	`

	e, err := scanClockEvent(q.QueryRow(ctx, query, id, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return clock.ClockEvent{}, clock.ErrEventNotFound
		}
		return clock.ClockEvent{}, fmt.Errorf("failed to get clock event: %w", err)
	}

	return e, nil
}

// GetOverrideOf implements clock.ClockEventRepository.
func (r *clockEventRepository) GetOverrideOf(ctx context.Context, businessID, blockedEventID string) (clock.ClockEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + clockEventColumns + clockEventFrom + `
		WHERE e.override_of_event_id = $1 AND e.business_id = $2
	`

	e, err := scanClockEvent(q.QueryRow(ctx, query, blockedEventID, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return clock.ClockEvent{}, clock.ErrEventNotFound
		}
		return clock.ClockEvent{}, fmt.Errorf("failed to get override event: %w", err)
	}

	return e, nil
}

// ListByJob implements clock.ClockEventRepository.
func (r *clockEventRepository) ListByJob(ctx context.Context, businessID, jobID string, filter clock.LedgerFilter) ([]clock.ClockEvent, int64, error) {
	return r.list(ctx, "e.business_id = $1 AND e.job_id = $2", []interface{}{businessID, jobID}, filter)
}

// ListByUser implements clock.ClockEventRepository.
func (r *clockEventRepository) ListByUser(ctx context.Context, businessID, userID string, filter clock.LedgerFilter) ([]clock.ClockEvent, int64, error) {
	return r.list(ctx, "e.business_id = $1 AND e.user_id = $2", []interface{}{businessID, userID}, filter)
}

// list returns matching events oldest first.
func (r *clockEventRepository) list(ctx context.Context, baseWhere string, args []interface{}, filter clock.LedgerFilter) ([]clock.ClockEvent, int64, error) {
	q := GetQuerier(ctx, r.db)
	argIdx := len(args) + 1

	if filter.EventType != nil && *filter.EventType != "" {
		baseWhere += fmt.Sprintf(" AND e.event_type = $%d", argIdx)
		args = append(args, *filter.EventType)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND e.status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.From != nil {
		baseWhere += fmt.Sprintf(" AND e.recorded_at >= $%d", argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		baseWhere += fmt.Sprintf(" AND e.recorded_at < $%d", argIdx)
		args = append(args, *filter.To)
		argIdx++
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM clock_events e WHERE " + baseWhere
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count clock events: %w", err)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	selectQuery := fmt.Sprintf(`SELECT %s %s
		WHERE %s
		ORDER BY e.recorded_at ASC, e.id ASC
		LIMIT $%d OFFSET $%d
	`, clockEventColumns, clockEventFrom, baseWhere, argIdx, argIdx+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query clock events: %w", err)
	}
	defer rows.Close()

	var events []clock.ClockEvent
	for rows.Next() {
		e, err := scanClockEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan clock event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate clock events: %w", err)
	}

	return events, total, nil
}

// Summary implements clock.ClockEventRepository.
func (r *clockEventRepository) Summary(ctx context.Context, businessID string, filter clock.SummaryFilter) (clock.LedgerSummary, error) {
	q := GetQuerier(ctx, r.db)

	where := "e.business_id = $1"
	args := []interface{}{businessID}
	argIdx := 2

	if filter.JobID != nil {
		where += fmt.Sprintf(" AND e.job_id = $%d", argIdx)
		args = append(args, *filter.JobID)
		argIdx++
	}
	if filter.UserID != nil {
		where += fmt.Sprintf(" AND e.user_id = $%d", argIdx)
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.From != nil {
		where += fmt.Sprintf(" AND e.recorded_at >= $%d", argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		where += fmt.Sprintf(" AND e.recorded_at < $%d", argIdx)
		args = append(args, *filter.To)
	}

	// An override row re-admits an earlier blocked row, so totals and
	// violations count attempts and skip it.
	query := `
		SELECT
			COUNT(*) FILTER (WHERE e.override_of_event_id IS NULL),
			COUNT(*) FILTER (WHERE e.status = 'granted'),
			COUNT(*) FILTER (WHERE e.status = 'warned'),
			COUNT(*) FILTER (WHERE e.status = 'blocked'),
			COUNT(*) FILTER (WHERE e.override_reason IS NOT NULL OR e.override_photo_url IS NOT NULL),
			COUNT(*) FILTER (WHERE e.within_geofence = FALSE AND e.override_of_event_id IS NULL),
			COUNT(*) FILTER (WHERE e.status = 'override' AND a.event_id IS NULL)
		` + clockEventFrom + `
		WHERE ` + where

	var s clock.LedgerSummary
	err := q.QueryRow(ctx, query, args...).Scan(
		&s.TotalEvents, &s.GrantedCount, &s.WarnedCount, &s.BlockedCount,
		&s.OverrideCount, &s.ViolationCount, &s.PendingApprovalCount,
	)
	if err != nil {
		return clock.LedgerSummary{}, fmt.Errorf("failed to summarize clock events: %w", err)
	}

	return s, nil
}

func NewClockEventRepository(db *database.DB) clock.ClockEventRepository {
	return &clockEventRepository{db: db}
}
