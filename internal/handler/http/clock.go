package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

const geoJSONContentType = "application/geo+json"

type ClockHandler interface {
	Clock(w http.ResponseWriter, r *http.Request)
	SubmitOverride(w http.ResponseWriter, r *http.Request)
	ApproveOverride(w http.ResponseWriter, r *http.Request)
	GetEvent(w http.ResponseWriter, r *http.Request)
	ListJobEvents(w http.ResponseWriter, r *http.Request)
	Summary(w http.ResponseWriter, r *http.Request)
	ExportGeoJSON(w http.ResponseWriter, r *http.Request)
	ListMyEvents(w http.ResponseWriter, r *http.Request)
	ListMyTimeEntries(w http.ResponseWriter, r *http.Request)
}

type clockHandlerImpl struct {
	clockService clock.ClockService
}

func NewClockHandler(clockService clock.ClockService) ClockHandler {
	return &clockHandlerImpl{
		clockService: clockService,
	}
}

// Clock implements ClockHandler.
func (h *clockHandlerImpl) Clock(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	var req clock.ClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Clock decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.JobID = chi.URLParam(r, "jobID")

	result, err := h.clockService.Clock(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, result.Message, result)
}

// SubmitOverride implements ClockHandler.
func (h *clockHandlerImpl) SubmitOverride(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	var req clock.OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("SubmitOverride decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.BlockedEventID = chi.URLParam(r, "eventID")

	result, err := h.clockService.SubmitOverride(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, result.Message, result)
}

// ApproveOverride implements ClockHandler.
func (h *clockHandlerImpl) ApproveOverride(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	var req clock.ApproveOverrideRequest
	// Notes are optional, so an empty body is accepted.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Error("ApproveOverride decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EventID = chi.URLParam(r, "eventID")

	result, err := h.clockService.ApproveOverride(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Override approved", result)
}

// GetEvent implements ClockHandler.
func (h *clockHandlerImpl) GetEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	result, err := h.clockService.GetEvent(r.Context(), actor, chi.URLParam(r, "eventID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ListJobEvents implements ClockHandler.
func (h *clockHandlerImpl) ListJobEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	filter := parseLedgerFilter(r)

	results, err := h.clockService.ListJobEvents(r.Context(), actor, chi.URLParam(r, "jobID"), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// Summary implements ClockHandler.
func (h *clockHandlerImpl) Summary(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	jobID := chi.URLParam(r, "jobID")
	filter := clock.SummaryFilter{JobID: &jobID}

	if userID := r.URL.Query().Get("user_id"); userID != "" {
		filter.UserID = &userID
	}
	if startDate := r.URL.Query().Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}
	if endDate := r.URL.Query().Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}

	result, err := h.clockService.Summary(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ExportGeoJSON implements ClockHandler.
func (h *clockHandlerImpl) ExportGeoJSON(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	filter := parseLedgerFilter(r)

	collection, err := h.clockService.ExportJobGeoJSON(r.Context(), actor, chi.URLParam(r, "jobID"), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Raw(w, geoJSONContentType, collection)
}

// ListMyEvents implements ClockHandler.
func (h *clockHandlerImpl) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	results, err := h.clockService.ListMyEvents(r.Context(), actor, parseLedgerFilter(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// ListMyTimeEntries implements ClockHandler.
func (h *clockHandlerImpl) ListMyTimeEntries(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	query := r.URL.Query()
	filter := clock.TimeEntryFilter{
		Page:  getIntQueryParam(r, "page", 1),
		Limit: getIntQueryParam(r, "limit", 20),
	}

	if jobID := query.Get("job_id"); jobID != "" {
		filter.JobID = &jobID
	}
	if open, err := strconv.ParseBool(query.Get("open")); err == nil {
		filter.OpenOnly = open
	}
	if startDate := query.Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}
	if endDate := query.Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}

	results, err := h.clockService.ListMyTimeEntries(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

func parseLedgerFilter(r *http.Request) clock.LedgerFilter {
	query := r.URL.Query()
	filter := clock.LedgerFilter{
		Page:  getIntQueryParam(r, "page", 1),
		Limit: getIntQueryParam(r, "limit", 20),
	}

	if eventType := query.Get("event_type"); eventType != "" {
		filter.EventType = &eventType
	}
	if status := query.Get("status"); status != "" {
		filter.Status = &status
	}
	if startDate := query.Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}
	if endDate := query.Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}

	return filter
}

// getIntQueryParam gets an int query parameter with a default value
func getIntQueryParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}
