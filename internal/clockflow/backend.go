package clockflow

import (
	"context"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
)

// ServiceBackend runs the flow in-process against a clock.ClockService on
// behalf of one actor.
type ServiceBackend struct {
	service clock.ClockService
	actor   user.Actor
}

func NewServiceBackend(service clock.ClockService, actor user.Actor) *ServiceBackend {
	return &ServiceBackend{service: service, actor: actor}
}

// Validate implements Backend.
func (b *ServiceBackend) Validate(ctx context.Context, attempt Attempt, sample geofence.LocationSample) (Result, error) {
	resp, err := b.service.Clock(ctx, b.actor, clock.ClockRequest{
		JobID:          attempt.JobID,
		EventType:      string(attempt.EventType),
		Latitude:       sample.Latitude,
		Longitude:      sample.Longitude,
		AccuracyMeters: sample.AccuracyMeters,
		CapturedAt:     sample.CapturedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return Result{}, err
	}
	return ResultFromResponse(resp), nil
}

// Override implements Backend.
func (b *ServiceBackend) Override(ctx context.Context, blockedEventID string, reason, photoURL *string) (Result, error) {
	resp, err := b.service.SubmitOverride(ctx, b.actor, clock.OverrideRequest{
		BlockedEventID: blockedEventID,
		Reason:         reason,
		PhotoURL:       photoURL,
	})
	if err != nil {
		return Result{}, err
	}
	return ResultFromResponse(resp), nil
}

// ResultFromResponse converts the clock API response into a flow Result.
func ResultFromResponse(resp clock.ClockResponse) Result {
	r := Result{
		EventID: resp.Event.ID,
		Status:  resp.Event.Status,
		Verdict: resp.Verdict,
		Message: resp.Message,
	}
	if resp.TimeEntry != nil {
		id := resp.TimeEntry.ID
		r.TimeEntryID = &id
	}
	return r
}
