package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type businessSettingsRepository struct {
	db *database.DB
}

// GetByBusinessID implements geofence.BusinessSettingsRepository.
func (r *businessSettingsRepository) GetByBusinessID(ctx context.Context, businessID string) (geofence.BusinessSettings, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT business_id, default_radius_meters, default_enforcement_mode,
			   allow_override, override_requires_reason, override_requires_photo,
			   accuracy_warning_meters, created_at, updated_at
		FROM business_settings
		WHERE business_id = $1
	`

	var s geofence.BusinessSettings
	err := q.QueryRow(ctx, query, businessID).Scan(
		&s.BusinessID, &s.DefaultRadiusMeters, &s.DefaultEnforcementMode,
		&s.AllowOverride, &s.OverrideRequiresReason, &s.OverrideRequiresPhoto,
		&s.AccuracyWarningMeters, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return geofence.DefaultBusinessSettings(businessID), nil
		}
		return geofence.BusinessSettings{}, fmt.Errorf("failed to get business settings: %w", err)
	}

	return s, nil
}

func NewBusinessSettingsRepository(db *database.DB) geofence.BusinessSettingsRepository {
	return &businessSettingsRepository{db: db}
}
