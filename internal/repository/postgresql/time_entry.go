package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type timeEntryRepository struct {
	db *database.DB
}

const timeEntryColumns = `
	id, business_id, job_id, user_id, clock_in, clock_out,
	clock_in_event_id, clock_out_event_id, duration_minutes, created_at, updated_at`

func scanTimeEntry(row pgx.Row) (clock.TimeEntry, error) {
	var t clock.TimeEntry
	err := row.Scan(
		&t.ID, &t.BusinessID, &t.JobID, &t.UserID, &t.ClockIn, &t.ClockOut,
		&t.ClockInEventID, &t.ClockOutEventID, &t.DurationMinutes, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// GetOpen implements clock.TimeEntryRepository.
func (r *timeEntryRepository) GetOpen(ctx context.Context, businessID, userID, jobID string) (clock.TimeEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + timeEntryColumns + `
		FROM time_entries
		WHERE business_id = $1 AND user_id = $2 AND job_id = $3 AND clock_out IS NULL
		FOR UPDATE
	`

	t, err := scanTimeEntry(q.QueryRow(ctx, query, businessID, userID, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return clock.TimeEntry{}, clock.ErrNoOpenTimeEntry
		}
		return clock.TimeEntry{}, fmt.Errorf("failed to get open time entry: %w", err)
	}

	return t, nil
}

// Open implements clock.TimeEntryRepository.
func (r *timeEntryRepository) Open(ctx context.Context, entry clock.TimeEntry) (clock.TimeEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO time_entries (id, business_id, job_id, user_id, clock_in, clock_in_event_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		entry.ID, entry.BusinessID, entry.JobID, entry.UserID, entry.ClockIn, entry.ClockInEventID,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "time_entries_one_open") {
			return clock.TimeEntry{}, clock.ErrAlreadyClockedIn
		}
		return clock.TimeEntry{}, fmt.Errorf("failed to open time entry: %w", err)
	}

	return entry, nil
}

// Close implements clock.TimeEntryRepository.
func (r *timeEntryRepository) Close(ctx context.Context, businessID, entryID string, clockOut time.Time, clockOutEventID string, durationMinutes float64) (clock.TimeEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE time_entries
		SET clock_out = $3,
			clock_out_event_id = $4,
			duration_minutes = $5,
			updated_at = NOW()
		WHERE id = $1 AND business_id = $2 AND clock_out IS NULL
		RETURNING ` + timeEntryColumns

	t, err := scanTimeEntry(q.QueryRow(ctx, query, entryID, businessID, clockOut, clockOutEventID, durationMinutes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return clock.TimeEntry{}, clock.ErrNoOpenTimeEntry
		}
		return clock.TimeEntry{}, fmt.Errorf("failed to close time entry: %w", err)
	}

	return t, nil
}

// ListByUser implements clock.TimeEntryRepository.
func (r *timeEntryRepository) ListByUser(ctx context.Context, businessID, userID string, filter clock.TimeEntryFilter) ([]clock.TimeEntry, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "business_id = $1 AND user_id = $2"
	args := []interface{}{businessID, userID}
	argIdx := 3

	if filter.JobID != nil {
		baseWhere += fmt.Sprintf(" AND job_id = $%d", argIdx)
		args = append(args, *filter.JobID)
		argIdx++
	}
	if filter.OpenOnly {
		baseWhere += " AND clock_out IS NULL"
	}
	if filter.From != nil {
		baseWhere += fmt.Sprintf(" AND clock_in >= $%d", argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		baseWhere += fmt.Sprintf(" AND clock_in < $%d", argIdx)
		args = append(args, *filter.To)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM time_entries WHERE "+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count time entries: %w", err)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	selectQuery := fmt.Sprintf(`SELECT %s
		FROM time_entries
		WHERE %s
		ORDER BY clock_in DESC
		LIMIT $%d OFFSET $%d
	`, timeEntryColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query time entries: %w", err)
	}
	defer rows.Close()

	var entries []clock.TimeEntry
	for rows.Next() {
		t, err := scanTimeEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate time entries: %w", err)
	}

	return entries, total, nil
}

// ListOpenOlderThan implements clock.TimeEntryRepository.
func (r *timeEntryRepository) ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]clock.TimeEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + timeEntryColumns + `
		FROM time_entries
		WHERE clock_out IS NULL AND clock_in < $1
		ORDER BY business_id, clock_in
	`

	rows, err := q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale time entries: %w", err)
	}
	defer rows.Close()

	var entries []clock.TimeEntry
	for rows.Next() {
		t, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stale time entries: %w", err)
	}

	return entries, nil
}

func NewTimeEntryRepository(db *database.DB) clock.TimeEntryRepository {
	return &timeEntryRepository{db: db}
}
