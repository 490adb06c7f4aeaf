package clock

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/validator"
)

// ========================================
// CLOCK ATTEMPT DTOs
// ========================================

type ClockRequest struct {
	JobID          string   `json:"-"`
	EventType      string   `json:"event_type"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	AccuracyMeters *float64 `json:"accuracy_meters"`
	CapturedAt     string   `json:"captured_at"` // RFC3339

	ParsedCapturedAt time.Time `json:"-"`
}

func (r *ClockRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.JobID) {
		errs = append(errs, validator.ValidationError{
			Field:   "job_id",
			Message: "job_id is required",
		})
	} else if !validator.IsValidUUID(r.JobID) {
		errs = append(errs, validator.ValidationError{
			Field:   "job_id",
			Message: "job_id must be a valid UUID",
		})
	}

	if !validator.IsInSlice(r.EventType, EventTypeValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "event_type",
			Message: "event_type must be one of: " + strings.Join(EventTypeValues, ", "),
		})
	}

	if !validator.IsValidLatitude(r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if !validator.IsValidLongitude(r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if r.AccuracyMeters != nil && *r.AccuracyMeters < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "accuracy_meters",
			Message: "accuracy_meters must not be negative",
		})
	}

	if validator.IsEmpty(r.CapturedAt) {
		errs = append(errs, validator.ValidationError{
			Field:   "captured_at",
			Message: "captured_at is required",
		})
	} else if capturedAt, valid := validator.IsValidDateTime(r.CapturedAt); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "captured_at",
			Message: "captured_at must be an RFC3339 timestamp",
		})
	} else {
		r.ParsedCapturedAt = capturedAt
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Sample returns the location fix carried by the request. Validate must run first.
func (r ClockRequest) Sample() geofence.LocationSample {
	return geofence.LocationSample{
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		AccuracyMeters: r.AccuracyMeters,
		CapturedAt:     r.ParsedCapturedAt,
	}
}

// ========================================
// OVERRIDE DTOs
// ========================================

type OverrideRequest struct {
	BlockedEventID string  `json:"-"`
	Reason         *string `json:"reason,omitempty"`
	PhotoURL       *string `json:"photo_url,omitempty"`
}

func (r *OverrideRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.BlockedEventID) {
		errs = append(errs, validator.ValidationError{
			Field:   "event_id",
			Message: "event_id must be a valid UUID",
		})
	}

	if r.Reason != nil {
		trimmed := strings.TrimSpace(*r.Reason)
		if len(trimmed) > 500 {
			errs = append(errs, validator.ValidationError{
				Field:   "reason",
				Message: "reason must not exceed 500 characters",
			})
		}
		r.Reason = &trimmed
	}

	if r.PhotoURL != nil && !validator.IsBlank(r.PhotoURL) && !validator.IsValidHTTPURL(*r.PhotoURL) {
		errs = append(errs, validator.ValidationError{
			Field:   "photo_url",
			Message: "photo_url must be a valid http(s) URL",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ApproveOverrideRequest struct {
	EventID string  `json:"-"`
	Notes   *string `json:"notes,omitempty"`
}

func (r *ApproveOverrideRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.EventID) {
		errs = append(errs, validator.ValidationError{
			Field:   "event_id",
			Message: "event_id must be a valid UUID",
		})
	}

	if r.Notes != nil && len(*r.Notes) > 1000 {
		errs = append(errs, validator.ValidationError{
			Field:   "notes",
			Message: "notes must not exceed 1000 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ========================================
// LEDGER FILTERS
// ========================================

type LedgerFilter struct {
	EventType *string `json:"event_type,omitempty"`
	Status    *string `json:"status,omitempty"`
	StartDate *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate   *string `json:"end_date,omitempty"`   // YYYY-MM-DD

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	From *time.Time `json:"-"`
	To   *time.Time `json:"-"` // exclusive
}

var eventStatusValues = []string{
	string(EventStatusGranted),
	string(EventStatusWarned),
	string(EventStatusBlocked),
	string(EventStatusOverride),
}

func (f *LedgerFilter) Validate() error {
	var errs validator.ValidationErrors

	errs = append(errs, validatePagination(&f.Page, &f.Limit)...)

	if f.EventType != nil && !validator.IsInSlice(*f.EventType, EventTypeValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "event_type",
			Message: "event_type must be one of: " + strings.Join(EventTypeValues, ", "),
		})
	}

	if f.Status != nil && !validator.IsInSlice(*f.Status, eventStatusValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: " + strings.Join(eventStatusValues, ", "),
		})
	}

	from, to, dateErrs := parseDateRange(f.StartDate, f.EndDate)
	errs = append(errs, dateErrs...)
	f.From, f.To = from, to

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func (f LedgerFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type SummaryFilter struct {
	JobID     *string `json:"job_id,omitempty"`
	UserID    *string `json:"user_id,omitempty"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`

	From *time.Time `json:"-"`
	To   *time.Time `json:"-"`
}

func (f *SummaryFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.JobID != nil && !validator.IsValidUUID(*f.JobID) {
		errs = append(errs, validator.ValidationError{
			Field:   "job_id",
			Message: "job_id must be a valid UUID",
		})
	}
	if f.UserID != nil && !validator.IsValidUUID(*f.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id must be a valid UUID",
		})
	}

	from, to, dateErrs := parseDateRange(f.StartDate, f.EndDate)
	errs = append(errs, dateErrs...)
	f.From, f.To = from, to

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type TimeEntryFilter struct {
	JobID     *string `json:"job_id,omitempty"`
	OpenOnly  bool    `json:"open_only"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	From *time.Time `json:"-"`
	To   *time.Time `json:"-"`
}

func (f *TimeEntryFilter) Validate() error {
	var errs validator.ValidationErrors

	errs = append(errs, validatePagination(&f.Page, &f.Limit)...)

	if f.JobID != nil && !validator.IsValidUUID(*f.JobID) {
		errs = append(errs, validator.ValidationError{
			Field:   "job_id",
			Message: "job_id must be a valid UUID",
		})
	}

	from, to, dateErrs := parseDateRange(f.StartDate, f.EndDate)
	errs = append(errs, dateErrs...)
	f.From, f.To = from, to

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func (f TimeEntryFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

func validatePagination(page, limit *int) validator.ValidationErrors {
	var errs validator.ValidationErrors

	if *page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if *page == 0 {
		*page = 1 // Default page
	}

	if *limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if *limit == 0 {
		*limit = 50 // Default limit
	}
	if *limit > 200 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 200",
		})
	}

	return errs
}

// parseDateRange turns inclusive YYYY-MM-DD bounds into [from, to) instants in UTC.
func parseDateRange(start, end *string) (*time.Time, *time.Time, validator.ValidationErrors) {
	var errs validator.ValidationErrors
	var from, to *time.Time

	if start != nil && *start != "" {
		if d, valid := validator.IsValidDate(*start); valid {
			from = &d
		} else {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}

	if end != nil && *end != "" {
		if d, valid := validator.IsValidDate(*end); valid {
			next := d.AddDate(0, 0, 1)
			to = &next
		} else {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}

	if from != nil && to != nil && !from.Before(*to) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	return from, to, errs
}

// ========================================
// RESPONSES
// ========================================

type ClockEventResponse struct {
	ID                     string                   `json:"id"`
	JobID                  string                   `json:"job_id"`
	UserID                 string                   `json:"user_id"`
	EventType              EventType                `json:"event_type"`
	Status                 EventStatus              `json:"status"`
	RecordedAt             time.Time                `json:"recorded_at"`
	Latitude               *float64                 `json:"latitude"`
	Longitude              *float64                 `json:"longitude"`
	AccuracyMeters         *float64                 `json:"accuracy_meters"`
	LocationCapturedAt     *time.Time               `json:"location_captured_at,omitempty"`
	WithinGeofence         *bool                    `json:"within_geofence"`
	DistanceFromJobMeters  *float64                 `json:"distance_from_job_meters"`
	GeofenceRadiusMeters   float64                  `json:"geofence_radius_meters"`
	RadiusExpanded         bool                     `json:"radius_expanded"`
	EnforcementMode        geofence.EnforcementMode `json:"enforcement_mode"`
	CanOverride            bool                     `json:"can_override"`
	OverrideRequiresReason bool                     `json:"override_requires_reason"`
	OverrideRequiresPhoto  bool                     `json:"override_requires_photo"`
	OverrideOfEventID      *string                  `json:"override_of_event_id,omitempty"`
	OverrideReason         *string                  `json:"override_reason,omitempty"`
	OverridePhotoURL       *string                  `json:"override_photo_url,omitempty"`
	OverrideApprovedBy     *string                  `json:"override_approved_by,omitempty"`
	OverrideApprovedAt     *time.Time               `json:"override_approved_at,omitempty"`
	AuditNote              *string                  `json:"audit_note,omitempty"`
}

func NewClockEventResponse(e ClockEvent) ClockEventResponse {
	return ClockEventResponse{
		ID:                     e.ID,
		JobID:                  e.JobID,
		UserID:                 e.UserID,
		EventType:              e.EventType,
		Status:                 e.Status,
		RecordedAt:             e.RecordedAt,
		Latitude:               e.Latitude,
		Longitude:              e.Longitude,
		AccuracyMeters:         e.AccuracyMeters,
		LocationCapturedAt:     e.LocationCapturedAt,
		WithinGeofence:         e.WithinGeofence,
		DistanceFromJobMeters:  e.DistanceFromJobMeters,
		GeofenceRadiusMeters:   e.GeofenceRadiusMeters,
		RadiusExpanded:         e.RadiusExpanded,
		EnforcementMode:        e.EnforcementMode,
		CanOverride:            e.CanOverride,
		OverrideRequiresReason: e.OverrideRequiresReason,
		OverrideRequiresPhoto:  e.OverrideRequiresPhoto,
		OverrideOfEventID:      e.OverrideOfEventID,
		OverrideReason:         e.OverrideReason,
		OverridePhotoURL:       e.OverridePhotoURL,
		OverrideApprovedBy:     e.OverrideApprovedBy,
		OverrideApprovedAt:     e.OverrideApprovedAt,
		AuditNote:              e.AuditNote,
	}
}

type TimeEntryResponse struct {
	ID              string     `json:"id"`
	JobID           string     `json:"job_id"`
	UserID          string     `json:"user_id"`
	ClockIn         time.Time  `json:"clock_in"`
	ClockOut        *time.Time `json:"clock_out"`
	ClockInEventID  string     `json:"clock_in_event_id"`
	ClockOutEventID *string    `json:"clock_out_event_id,omitempty"`
	DurationMinutes *float64   `json:"duration_minutes"`
	Open            bool       `json:"open"`
}

func NewTimeEntryResponse(t TimeEntry) TimeEntryResponse {
	return TimeEntryResponse{
		ID:              t.ID,
		JobID:           t.JobID,
		UserID:          t.UserID,
		ClockIn:         t.ClockIn,
		ClockOut:        t.ClockOut,
		ClockInEventID:  t.ClockInEventID,
		ClockOutEventID: t.ClockOutEventID,
		DurationMinutes: t.DurationMinutes,
		Open:            t.IsOpen(),
	}
}

// ClockResponse is returned for every attempt that reached validation,
// including blocked ones.
type ClockResponse struct {
	Event     ClockEventResponse `json:"event"`
	Verdict   geofence.Verdict   `json:"verdict"`
	TimeEntry *TimeEntryResponse `json:"time_entry,omitempty"`
	Message   string             `json:"message"`
}

type ApprovalResponse struct {
	EventID    string    `json:"event_id"`
	ApprovedBy string    `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
	Notes      *string   `json:"notes,omitempty"`
}

type ListClockEventResponse struct {
	TotalCount int64                `json:"total_count"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
	Showing    string               `json:"showing"`
	Events     []ClockEventResponse `json:"events"`
}

type ListTimeEntryResponse struct {
	TotalCount int64               `json:"total_count"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"total_pages"`
	Showing    string              `json:"showing"`
	Entries    []TimeEntryResponse `json:"entries"`
}

// Showing renders the "x-y of n" label used by list responses.
func Showing(page, limit, count int, total int64) string {
	if count == 0 {
		return fmt.Sprintf("0 of %d", total)
	}
	start := (page-1)*limit + 1
	return fmt.Sprintf("%d-%d of %d", start, start+count-1, total)
}

// TotalPages rounds total/limit up.
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
