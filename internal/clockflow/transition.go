package clockflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/validator"
)

const (
	MessageCannotClockIn  = "Cannot clock in: outside the job geofence"
	MessageCannotClockOut = "Cannot clock out: outside the job geofence"
)

// Config holds the client side thresholds of the clock flow.
type Config struct {
	AccuracyThresholdMeters float64       // default: 50
	MaxFixAge               time.Duration // default: 2m
	OverrideWindow          time.Duration // default: 5m
}

func (c Config) withDefaults() Config {
	if c.AccuracyThresholdMeters <= 0 {
		c.AccuracyThresholdMeters = 50
	}
	if c.MaxFixAge <= 0 {
		c.MaxFixAge = 2 * time.Minute
	}
	if c.OverrideWindow <= 0 {
		c.OverrideWindow = 5 * time.Minute
	}
	return c
}

// Transition returns the state reached from s on ev and the side effect to
// run next, if any. It never performs I/O. A rejected event returns s
// unchanged (OverridePrompt records the rejection in Err) and a non-nil error.
func Transition(cfg Config, s State, ev Event, now time.Time) (State, Command, error) {
	cfg = cfg.withDefaults()

	switch st := s.(type) {
	case Idle:
		switch e := ev.(type) {
		case StartClockIn:
			if !validator.IsValidUUID(e.JobID) {
				return st, nil, fmt.Errorf("%w: job id must be a valid UUID", ErrInvalidTransition)
			}
			return Locating{Attempt: Attempt{JobID: e.JobID, EventType: clock.EventTypeClockIn}}, RequestLocation{}, nil
		case Cancel:
			return st, nil, nil
		}

	case ClockedIn:
		switch ev.(type) {
		case StartClockOut:
			shift := st
			shift.Notice, shift.Err = "", nil
			attempt := Attempt{JobID: st.JobID, EventType: clock.EventTypeClockOut, Shift: &shift}
			return Locating{Attempt: attempt}, RequestLocation{}, nil
		case Cancel:
			return st, nil, nil
		}

	case Locating:
		switch e := ev.(type) {
		case LocationAcquired:
			next, cmd := afterFix(cfg, st.Attempt, e, now, false)
			return next, cmd, nil
		case LocationFailed:
			return abandon(st.Attempt, "", e.Err), nil, nil
		case Cancel:
			return abandon(st.Attempt, "", nil), nil, nil
		}

	case AccuracyWarning:
		switch ev.(type) {
		case Retry:
			return Locating{Attempt: st.Attempt}, RequestLocation{}, nil
		case ProceedAnyway:
			next, cmd := afterFix(cfg, st.Attempt, LocationAcquired{Sample: st.Sample}, now, true)
			return next, cmd, nil
		case Cancel:
			return abandon(st.Attempt, "", nil), nil, nil
		}

	case Validating:
		switch e := ev.(type) {
		case ValidationSucceeded:
			return afterVerdict(st, e.Result, now), nil, nil
		case ValidationFailed:
			return abandon(st.Attempt, "", e.Err), nil, nil
		case Cancel:
			return st, nil, ErrAttemptCommitted
		}

	case Granted:
		if _, ok := ev.(Acknowledge); ok {
			return settle(st.Attempt, st.Result, now), nil, nil
		}

	case Warned:
		if _, ok := ev.(Acknowledge); ok {
			return settle(st.Attempt, st.Result, now), nil, nil
		}

	case Blocked:
		switch ev.(type) {
		case BeginOverride:
			if !st.Result.Verdict.CanOverride {
				return st, nil, ErrOverrideUnavailable
			}
			return OverridePrompt{Attempt: st.Attempt, Sample: st.Sample, Blocked: st.Result}, nil, nil
		case Acknowledge, Cancel:
			return abandon(st.Attempt, st.Result.Message, nil), nil, nil
		}

	case OverridePrompt:
		return overrideTransition(cfg, st, ev, now)
	}

	return s, nil, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev.eventName(), s.Name())
}

func overrideTransition(cfg Config, st OverridePrompt, ev Event, now time.Time) (State, Command, error) {
	switch e := ev.(type) {
	case SubmitOverride:
		if st.Submitting {
			break
		}
		if st.Blocked.Verdict.OverrideRequiresReason && validator.IsBlank(e.Reason) {
			st.Err = clock.ErrOverrideReasonRequired
			return st, nil, clock.ErrOverrideReasonRequired
		}
		if st.Blocked.Verdict.OverrideRequiresPhoto && validator.IsBlank(e.PhotoURL) {
			st.Err = clock.ErrOverridePhotoRequired
			return st, nil, clock.ErrOverridePhotoRequired
		}
		// The server refuses overrides of old attempts; start a fresh one instead.
		if now.Sub(st.Sample.CapturedAt) > cfg.OverrideWindow {
			return Locating{Attempt: st.Attempt}, RequestLocation{}, nil
		}
		st.Submitting, st.Err = true, nil
		return st, SendOverride{BlockedEventID: st.Blocked.EventID, Reason: e.Reason, PhotoURL: e.PhotoURL}, nil

	case OverrideSucceeded:
		if st.Submitting {
			return settle(st.Attempt, e.Result, now), nil, nil
		}

	case OverrideFailed:
		if !st.Submitting {
			break
		}
		if errors.Is(e.Err, clock.ErrStaleAttempt) {
			return Locating{Attempt: st.Attempt}, RequestLocation{}, nil
		}
		st.Submitting, st.Err = false, e.Err
		return st, nil, nil

	case Cancel:
		if st.Submitting {
			return st, nil, ErrAttemptCommitted
		}
		return abandon(st.Attempt, st.Blocked.Message, nil), nil, nil
	}

	return st, nil, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev.eventName(), st.Name())
}

// afterFix routes a new fix. A stale fix is re-acquired; an imprecise one
// stops at AccuracyWarning unless the worker already chose to proceed.
func afterFix(cfg Config, a Attempt, fix LocationAcquired, now time.Time, proceed bool) (State, Command) {
	sample := fix.Sample
	if sample.Age(now) > cfg.MaxFixAge {
		return Locating{Attempt: a}, RequestLocation{}
	}
	if !proceed && (sample.AccuracyMeters == nil || *sample.AccuracyMeters > cfg.AccuracyThresholdMeters) {
		return AccuracyWarning{Attempt: a, Sample: sample}, nil
	}
	return Validating{Attempt: a, Sample: sample}, ValidateAttempt{Attempt: a, Sample: sample}
}

func afterVerdict(st Validating, r Result, now time.Time) State {
	switch r.Status {
	case clock.EventStatusGranted:
		return Granted{Attempt: st.Attempt, Result: r}
	case clock.EventStatusWarned:
		return Warned{Attempt: st.Attempt, Result: r}
	case clock.EventStatusBlocked:
		if r.Verdict.CanOverride {
			return Blocked{Attempt: st.Attempt, Sample: st.Sample, Result: r}
		}
		if st.Attempt.EventType == clock.EventTypeClockOut {
			return abandon(st.Attempt, MessageCannotClockOut, nil)
		}
		return abandon(st.Attempt, MessageCannotClockIn, nil)
	default:
		return settle(st.Attempt, r, now)
	}
}

// settle completes an admitted attempt.
func settle(a Attempt, r Result, now time.Time) State {
	if a.EventType == clock.EventTypeClockOut {
		return Idle{Notice: r.Message}
	}
	since := r.Verdict.ValidatedAt
	if since.IsZero() {
		since = now
	}
	return ClockedIn{JobID: a.JobID, TimeEntryID: r.TimeEntryID, Since: since, Notice: r.Message}
}

// abandon ends an attempt without changing whether the worker is on the clock.
func abandon(a Attempt, notice string, err error) State {
	if a.EventType == clock.EventTypeClockOut && a.Shift != nil {
		shift := *a.Shift
		shift.Notice, shift.Err = notice, err
		return shift
	}
	return Idle{Notice: notice, Err: err}
}
