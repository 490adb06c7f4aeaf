package clockflow

import (
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
)

type StateName string

const (
	StateIdle            StateName = "idle"
	StateLocating        StateName = "locating"
	StateAccuracyWarning StateName = "accuracy_warning"
	StateValidating      StateName = "validating"
	StateGranted         StateName = "granted"
	StateWarned          StateName = "warned"
	StateBlocked         StateName = "blocked"
	StateOverridePrompt  StateName = "override_prompt"
	StateClockedIn       StateName = "clocked_in"
)

// State is one node of the clock flow. Each state carries only the data
// that is meaningful while the flow sits in it.
type State interface {
	Name() StateName
}

// Attempt identifies the clock action in progress. Shift is set for a
// clock-out and is where the flow returns when the worker does not leave.
type Attempt struct {
	JobID     string
	EventType clock.EventType
	Shift     *ClockedIn
}

// Result is the server's answer to a validation or an override.
type Result struct {
	EventID     string
	Status      clock.EventStatus
	Verdict     geofence.Verdict
	TimeEntryID *string
	Message     string
}

// Idle waits for a clock-in. Err and Notice describe how the previous attempt ended.
type Idle struct {
	Notice string
	Err    error
}

type Locating struct {
	Attempt Attempt
}

// AccuracyWarning holds a fix whose accuracy is worse than the threshold or unknown.
type AccuracyWarning struct {
	Attempt Attempt
	Sample  geofence.LocationSample
}

type Validating struct {
	Attempt Attempt
	Sample  geofence.LocationSample
}

type Granted struct {
	Attempt Attempt
	Result  Result
}

type Warned struct {
	Attempt Attempt
	Result  Result
}

// Blocked is reached only for attempts that can still be overridden.
type Blocked struct {
	Attempt Attempt
	Sample  geofence.LocationSample
	Result  Result
}

// OverridePrompt collects the reason and photo for a blocked attempt.
// Submitting is true while the override request is in flight.
type OverridePrompt struct {
	Attempt    Attempt
	Sample     geofence.LocationSample
	Blocked    Result
	Submitting bool
	Err        error
}

// ClockedIn is an open shift on a job.
type ClockedIn struct {
	JobID       string
	TimeEntryID *string
	Since       time.Time
	Notice      string
	Err         error
}

func (Idle) Name() StateName            { return StateIdle }
func (Locating) Name() StateName        { return StateLocating }
func (AccuracyWarning) Name() StateName { return StateAccuracyWarning }
func (Validating) Name() StateName      { return StateValidating }
func (Granted) Name() StateName         { return StateGranted }
func (Warned) Name() StateName          { return StateWarned }
func (Blocked) Name() StateName         { return StateBlocked }
func (OverridePrompt) Name() StateName  { return StateOverridePrompt }
func (ClockedIn) Name() StateName       { return StateClockedIn }
