package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type jobSiteRepository struct {
	db *database.DB
}

const jobSiteColumns = `
	job_id, business_id, name, latitude, longitude, radius_meters, enforcement_mode,
	expanded_radius_meters, expanded_until, expanded_by, created_at, updated_at`

func scanJobSite(row pgx.Row) (geofence.JobSite, error) {
	var job geofence.JobSite
	err := row.Scan(
		&job.JobID, &job.BusinessID, &job.Name, &job.Latitude, &job.Longitude, &job.RadiusMeters, &job.EnforcementMode,
		&job.ExpandedRadiusMeters, &job.ExpandedUntil, &job.ExpandedBy, &job.CreatedAt, &job.UpdatedAt,
	)
	return job, err
}

// GetByJobID implements geofence.JobSiteRepository.
func (r *jobSiteRepository) GetByJobID(ctx context.Context, businessID, jobID string) (geofence.JobSite, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + jobSiteColumns + `
		FROM job_sites
		WHERE job_id = $1 AND business_id = $2
	`

	job, err := scanJobSite(q.QueryRow(ctx, query, jobID, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return geofence.JobSite{}, geofence.ErrJobNotFound
		}
		return geofence.JobSite{}, fmt.Errorf("failed to get job site: %w", err)
	}

	return job, nil
}

// UpdateExpansion implements geofence.JobSiteRepository.
func (r *jobSiteRepository) UpdateExpansion(ctx context.Context, businessID, jobID string, radiusMeters float64, until time.Time, expandedBy string) (geofence.JobSite, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE job_sites
		SET expanded_radius_meters = $3,
			expanded_until = $4,
			expanded_by = $5,
			updated_at = NOW()
		WHERE job_id = $1 AND business_id = $2
		RETURNING ` + jobSiteColumns

	job, err := scanJobSite(q.QueryRow(ctx, query, jobID, businessID, radiusMeters, until, expandedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return geofence.JobSite{}, geofence.ErrJobNotFound
		}
		return geofence.JobSite{}, fmt.Errorf("failed to update job site expansion: %w", err)
	}

	return job, nil
}

func NewJobSiteRepository(db *database.DB) geofence.JobSiteRepository {
	return &jobSiteRepository{db: db}
}
