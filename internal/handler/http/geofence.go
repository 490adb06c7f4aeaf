package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type GeofenceHandler interface {
	Describe(w http.ResponseWriter, r *http.Request)
	ExpandRadius(w http.ResponseWriter, r *http.Request)
}

type geofenceHandlerImpl struct {
	geofenceService geofence.GeofenceService
}

func NewGeofenceHandler(geofenceService geofence.GeofenceService) GeofenceHandler {
	return &geofenceHandlerImpl{
		geofenceService: geofenceService,
	}
}

// Describe implements GeofenceHandler.
func (h *geofenceHandlerImpl) Describe(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	result, err := h.geofenceService.Describe(r.Context(), actor, chi.URLParam(r, "jobID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ExpandRadius implements GeofenceHandler.
func (h *geofenceHandlerImpl) ExpandRadius(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	var req geofence.ExpandRadiusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("ExpandRadius decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.JobID = chi.URLParam(r, "jobID")

	result, err := h.geofenceService.ExpandRadius(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Geofence radius expanded", result)
}
