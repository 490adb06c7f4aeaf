package clockflow

import "github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"

// Event is an input to Transition: a user action or the outcome of a Command.
type Event interface {
	eventName() string
}

type StartClockIn struct{ JobID string }
type StartClockOut struct{}
type LocationAcquired struct{ Sample geofence.LocationSample }
type LocationFailed struct{ Err error }
type Retry struct{}
type ProceedAnyway struct{}
type Cancel struct{}
type ValidationSucceeded struct{ Result Result }
type ValidationFailed struct{ Err error }
type BeginOverride struct{}
type SubmitOverride struct {
	Reason   *string
	PhotoURL *string
}
type OverrideSucceeded struct{ Result Result }
type OverrideFailed struct{ Err error }
type Acknowledge struct{}

func (StartClockIn) eventName() string        { return "start_clock_in" }
func (StartClockOut) eventName() string       { return "start_clock_out" }
func (LocationAcquired) eventName() string    { return "location_acquired" }
func (LocationFailed) eventName() string      { return "location_failed" }
func (Retry) eventName() string               { return "retry" }
func (ProceedAnyway) eventName() string       { return "proceed_anyway" }
func (Cancel) eventName() string              { return "cancel" }
func (ValidationSucceeded) eventName() string { return "validation_succeeded" }
func (ValidationFailed) eventName() string    { return "validation_failed" }
func (BeginOverride) eventName() string       { return "begin_override" }
func (SubmitOverride) eventName() string      { return "submit_override" }
func (OverrideSucceeded) eventName() string   { return "override_succeeded" }
func (OverrideFailed) eventName() string      { return "override_failed" }
func (Acknowledge) eventName() string         { return "acknowledge" }

// Command is a side effect requested by Transition. The Runner executes it
// and feeds the outcome back as an Event.
type Command interface {
	commandName() string
}

// RequestLocation asks the LocationProvider for a fresh fix.
type RequestLocation struct{}

// ValidateAttempt submits the fix to the server, which records one ledger row.
type ValidateAttempt struct {
	Attempt Attempt
	Sample  geofence.LocationSample
}

// SendOverride submits the override evidence for a blocked ledger row.
type SendOverride struct {
	BlockedEventID string
	Reason         *string
	PhotoURL       *string
}

func (RequestLocation) commandName() string { return "request_location" }
func (ValidateAttempt) commandName() string { return "validate_attempt" }
func (SendOverride) commandName() string    { return "send_override" }
