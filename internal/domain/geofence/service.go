package geofence

import (
	"context"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
)

// GeofenceService resolves and administers job geofences.
type GeofenceService interface {
	// GetConfig loads the job and business policy and resolves the geofence.
	GetConfig(ctx context.Context, businessID, jobID string) (GeofenceConfig, error)

	// Describe returns the resolved geofence with the radius in effect now.
	Describe(ctx context.Context, actor user.Actor, jobID string) (GeofenceConfigResponse, error)

	// ExpandRadius applies a temporary radius expansion (manager only).
	ExpandRadius(ctx context.Context, actor user.Actor, req ExpandRadiusRequest) (GeofenceConfigResponse, error)
}
