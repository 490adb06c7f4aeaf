package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/validator"
	geofenceService "github.com/cmlabs-hris/geoclock-backend-go/internal/service/geofence"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

const (
	exportPageSize     = 200
	geofenceRingPoints = 64
)

// ExportJobGeoJSON implements clock.ClockService.
func (s *ClockServiceImpl) ExportJobGeoJSON(ctx context.Context, actor user.Actor, jobID string, filter clock.LedgerFilter) (*geojson.FeatureCollection, error) {
	if !actor.Can(user.PermissionClockViewAll) {
		return nil, user.ErrManagerAccessRequired
	}
	if !validator.IsValidUUID(jobID) {
		return nil, geofence.ErrJobNotFound
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	cfg, err := s.geofences.GetConfig(ctx, actor.BusinessID, jobID)
	if err != nil {
		return nil, err
	}

	fc := &geojson.FeatureCollection{}
	if cfg.HasCenter() {
		fc.Features = append(fc.Features, geofenceFeatures(cfg, s.now())...)
	}

	filter.Limit = exportPageSize
	for filter.Page = 1; ; filter.Page++ {
		events, total, err := s.ClockEventRepository.ListByJob(ctx, actor.BusinessID, jobID, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to export job clock events: %w", err)
		}
		for _, e := range events {
			if f := eventFeature(e); f != nil {
				fc.Features = append(fc.Features, f)
			}
		}
		if len(events) == 0 || int64(filter.Offset()+len(events)) >= total {
			break
		}
	}

	return fc, nil
}

// geofenceFeatures returns the job centre and the fence ring in effect at now.
func geofenceFeatures(cfg geofence.GeofenceConfig, now time.Time) []*geojson.Feature {
	lat, lon := *cfg.CenterLatitude, *cfg.CenterLongitude
	radius, expanded := geofenceService.EffectiveRadius(cfg, now)

	props := map[string]interface{}{
		"kind":             "geofence",
		"radius_meters":    radius,
		"radius_expanded":  expanded,
		"enforcement_mode": string(cfg.EnforcementMode),
	}

	ring := make([]float64, 0, 2*(geofenceRingPoints+1))
	for i := 0; i < geofenceRingPoints; i++ {
		pLat, pLon := utils.Destination(lat, lon, float64(i)*360/geofenceRingPoints, radius)
		ring = append(ring, pLon, pLat)
	}
	ring = append(ring, ring[0], ring[1])

	return []*geojson.Feature{
		{
			ID:         "job_center",
			Geometry:   geom.NewPointFlat(geom.XY, []float64{lon, lat}),
			Properties: props,
		},
		{
			ID:         "geofence",
			Geometry:   geom.NewPolygonFlat(geom.XY, ring, []int{len(ring)}),
			Properties: props,
		},
	}
}

func eventFeature(e clock.ClockEvent) *geojson.Feature {
	if e.Latitude == nil || e.Longitude == nil {
		return nil
	}

	props := map[string]interface{}{
		"kind":                   "clock_event",
		"user_id":                e.UserID,
		"event_type":             string(e.EventType),
		"status":                 string(e.Status),
		"recorded_at":            e.RecordedAt.UTC().Format(time.RFC3339),
		"geofence_radius_meters": e.GeofenceRadiusMeters,
		"radius_expanded":        e.RadiusExpanded,
		"enforcement_mode":       string(e.EnforcementMode),
	}
	if e.AccuracyMeters != nil {
		props["accuracy_meters"] = *e.AccuracyMeters
	}
	if e.DistanceFromJobMeters != nil {
		props["distance_from_job_meters"] = *e.DistanceFromJobMeters
	}
	if e.WithinGeofence != nil {
		props["within_geofence"] = *e.WithinGeofence
	}
	if e.OverrideOfEventID != nil {
		props["override_of_event_id"] = *e.OverrideOfEventID
	}

	return &geojson.Feature{
		ID:         e.ID,
		Geometry:   geom.NewPointFlat(geom.XY, []float64{*e.Longitude, *e.Latitude}),
		Properties: props,
	}
}
