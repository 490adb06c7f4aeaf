package geofence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
)

// Config holds geofence service configuration
type Config struct {
	DefaultRadiusMeters float64       // default: 150
	MaxExpansionWindow  time.Duration // default: 72h
}

type GeofenceServiceImpl struct {
	geofence.JobSiteRepository
	geofence.BusinessSettingsRepository
	config Config
	now    func() time.Time
}

// NewGeofenceService creates a geofence service. now defaults to time.Now.
func NewGeofenceService(
	jobSiteRepo geofence.JobSiteRepository,
	settingsRepo geofence.BusinessSettingsRepository,
	cfg Config,
	now func() time.Time,
) *GeofenceServiceImpl {
	if cfg.DefaultRadiusMeters <= 0 {
		cfg.DefaultRadiusMeters = DefaultMinimumRadiusMeters
	}
	if cfg.MaxExpansionWindow <= 0 {
		cfg.MaxExpansionWindow = 72 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &GeofenceServiceImpl{
		JobSiteRepository:          jobSiteRepo,
		BusinessSettingsRepository: settingsRepo,
		config:                     cfg,
		now:                        now,
	}
}

// GetConfig implements geofence.GeofenceService.
func (s *GeofenceServiceImpl) GetConfig(ctx context.Context, businessID, jobID string) (geofence.GeofenceConfig, error) {
	job, err := s.JobSiteRepository.GetByJobID(ctx, businessID, jobID)
	if err != nil {
		return geofence.GeofenceConfig{}, err
	}

	settings, err := s.BusinessSettingsRepository.GetByBusinessID(ctx, businessID)
	if err != nil {
		return geofence.GeofenceConfig{}, fmt.Errorf("failed to get business settings: %w", err)
	}

	return ResolveConfig(job, settings, s.config.DefaultRadiusMeters), nil
}

// Describe implements geofence.GeofenceService.
func (s *GeofenceServiceImpl) Describe(ctx context.Context, actor user.Actor, jobID string) (geofence.GeofenceConfigResponse, error) {
	if !actor.Can(user.PermissionGeofenceView) {
		return geofence.GeofenceConfigResponse{}, user.ErrInsufficientPermissions
	}

	cfg, err := s.GetConfig(ctx, actor.BusinessID, jobID)
	if err != nil {
		return geofence.GeofenceConfigResponse{}, err
	}

	return s.toResponse(cfg, s.now().UTC()), nil
}

// ExpandRadius implements geofence.GeofenceService.
func (s *GeofenceServiceImpl) ExpandRadius(ctx context.Context, actor user.Actor, req geofence.ExpandRadiusRequest) (geofence.GeofenceConfigResponse, error) {
	if !actor.Can(user.PermissionGeofenceExpand) {
		return geofence.GeofenceConfigResponse{}, user.ErrManagerAccessRequired
	}
	if err := req.Validate(); err != nil {
		return geofence.GeofenceConfigResponse{}, err
	}

	now := s.now().UTC()
	if !req.ParsedUntil.After(now) {
		return geofence.GeofenceConfigResponse{}, geofence.ErrExpansionNotInFuture
	}
	if req.ParsedUntil.Sub(now) > s.config.MaxExpansionWindow {
		return geofence.GeofenceConfigResponse{}, geofence.ErrExpansionWindowTooLong
	}

	current, err := s.GetConfig(ctx, actor.BusinessID, req.JobID)
	if err != nil {
		return geofence.GeofenceConfigResponse{}, err
	}
	if req.ExpandedRadiusMeters <= current.BaseRadiusMeters {
		return geofence.GeofenceConfigResponse{}, geofence.ErrExpansionBelowBaseRadius
	}

	if _, err := s.JobSiteRepository.UpdateExpansion(ctx, actor.BusinessID, req.JobID, req.ExpandedRadiusMeters, req.ParsedUntil.UTC(), actor.UserID); err != nil {
		return geofence.GeofenceConfigResponse{}, fmt.Errorf("failed to update geofence expansion: %w", err)
	}

	slog.Info("Geofence radius expanded",
		"business_id", actor.BusinessID,
		"job_id", req.JobID,
		"expanded_radius_meters", req.ExpandedRadiusMeters,
		"expanded_until", req.ParsedUntil.UTC(),
		"expanded_by", actor.UserID,
	)

	updated, err := s.GetConfig(ctx, actor.BusinessID, req.JobID)
	if err != nil {
		return geofence.GeofenceConfigResponse{}, err
	}

	return s.toResponse(updated, now), nil
}

func (s *GeofenceServiceImpl) toResponse(cfg geofence.GeofenceConfig, now time.Time) geofence.GeofenceConfigResponse {
	radius, expanded := EffectiveRadius(cfg, now)
	return geofence.GeofenceConfigResponse{
		JobID:                  cfg.JobID,
		HasLocation:            cfg.HasCenter(),
		CenterLatitude:         cfg.CenterLatitude,
		CenterLongitude:        cfg.CenterLongitude,
		BaseRadiusMeters:       cfg.BaseRadiusMeters,
		EffectiveRadiusMeters:  radius,
		RadiusExpanded:         expanded,
		ExpandedRadiusMeters:   cfg.ExpandedRadiusMeters,
		ExpandedUntil:          cfg.ExpandedUntil,
		EnforcementMode:        cfg.EnforcementMode,
		AllowOverride:          cfg.AllowOverride,
		OverrideRequiresReason: cfg.OverrideRequiresReason,
		OverrideRequiresPhoto:  cfg.OverrideRequiresPhoto,
		AccuracyWarningMeters:  cfg.AccuracyWarningMeters,
		EvaluatedAt:            now,
	}
}

var _ geofence.GeofenceService = (*GeofenceServiceImpl)(nil)
