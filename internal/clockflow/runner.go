package clockflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
)

// maxLocateRequests bounds the fixes requested within one Dispatch, so a
// provider that keeps returning stale fixes cannot spin forever.
const maxLocateRequests = 3

// LocationProvider returns the device position. Errors should wrap
// ErrPermissionDenied, ErrLocationUnavailable or ErrLocationTimeout.
type LocationProvider interface {
	Locate(ctx context.Context) (geofence.LocationSample, error)
}

// Backend performs the server side of the flow.
type Backend interface {
	Validate(ctx context.Context, attempt Attempt, sample geofence.LocationSample) (Result, error)
	Override(ctx context.Context, blockedEventID string, reason, photoURL *string) (Result, error)
}

// Runner drives the clock flow for one worker, executing the commands
// returned by Transition until the flow waits for the worker again.
type Runner struct {
	mu       sync.Mutex
	cfg      Config
	location LocationProvider
	backend  Backend
	now      func() time.Time
	state    State
}

func NewRunner(cfg Config, location LocationProvider, backend Backend, now func() time.Time) *Runner {
	if now == nil {
		now = time.Now
	}
	return &Runner{
		cfg:      cfg.withDefaults(),
		location: location,
		backend:  backend,
		now:      now,
		state:    Idle{},
	}
}

// Restore sets the current state, e.g. ClockedIn for a shift opened earlier.
func (r *Runner) Restore(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Dispatch applies ev and runs the resulting commands. It returns the state
// the flow settles in and the error of a rejected event.
func (r *Runner) Dispatch(ctx context.Context, ev Event) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, cmd, err := Transition(r.cfg, r.state, ev, r.now())
	r.state = next
	if err != nil {
		return r.state, err
	}

	locates := 0
	for cmd != nil {
		var result Event
		if _, ok := cmd.(RequestLocation); ok {
			locates++
			if locates > maxLocateRequests {
				result = LocationFailed{Err: ErrLocationUnavailable}
			}
		}
		if result == nil {
			result = r.execute(ctx, cmd)
		}

		next, cmd, err = Transition(r.cfg, r.state, result, r.now())
		if err != nil {
			return r.state, err
		}
		slog.Debug("Clock flow transition", "from", r.state.Name(), "to", next.Name())
		r.state = next
	}

	return r.state, nil
}

func (r *Runner) execute(ctx context.Context, cmd Command) Event {
	switch c := cmd.(type) {
	case RequestLocation:
		sample, err := r.location.Locate(ctx)
		if err != nil {
			return LocationFailed{Err: err}
		}
		return LocationAcquired{Sample: sample}

	case ValidateAttempt:
		// The attempt is committed once validation starts.
		result, err := r.backend.Validate(context.WithoutCancel(ctx), c.Attempt, c.Sample)
		if err != nil {
			return ValidationFailed{Err: err}
		}
		return ValidationSucceeded{Result: result}

	case SendOverride:
		result, err := r.backend.Override(context.WithoutCancel(ctx), c.BlockedEventID, c.Reason, c.PhotoURL)
		if err != nil {
			return OverrideFailed{Err: err}
		}
		return OverrideSucceeded{Result: result}
	}
	return LocationFailed{Err: ErrInvalidTransition}
}
