package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/clockflow"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/config"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/geofence"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/repository/postgresql"
	clockService "github.com/cmlabs-hris/geoclock-backend-go/internal/service/clock"
	geofenceService "github.com/cmlabs-hris/geoclock-backend-go/internal/service/geofence"
	"github.com/spf13/cobra"
)

// app is the in-process service graph used by database-backed commands.
type app struct {
	db        *database.DB
	clock     *clockService.ClockServiceImpl
	geofences geofence.GeofenceService
	entries   clock.TimeEntryRepository
	clockCfg  config.ClockConfig
}

func newApp() (*app, error) {
	cfg, db, err := connect()
	if err != nil {
		return nil, err
	}

	entryRepo := postgresql.NewTimeEntryRepository(db)
	geofences := geofenceService.NewGeofenceService(
		postgresql.NewJobSiteRepository(db),
		postgresql.NewBusinessSettingsRepository(db),
		geofenceService.Config{
			DefaultRadiusMeters: cfg.Clock.DefaultRadiusMeters,
			MaxExpansionWindow:  cfg.Clock.MaxExpansionWindow,
		},
		nil,
	)
	clockSvc := clockService.NewClockService(
		db,
		postgresql.NewClockEventRepository(db),
		entryRepo,
		postgresql.NewOverrideApprovalRepository(db),
		geofences,
		nil,
		nil,
		clockService.Config{
			LocationMaxAge: cfg.Clock.LocationMaxAge,
			OverrideWindow: cfg.Clock.OverrideWindow,
		},
		nil,
	)

	return &app{
		db:        db,
		clock:     clockSvc,
		geofences: geofences,
		entries:   entryRepo,
		clockCfg:  cfg.Clock,
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// flowConfig builds the worker flow thresholds from the job's resolved
// geofence, so the accuracy warning follows the business setting.
func flowConfig(job geofence.GeofenceConfig, cfg config.ClockConfig) clockflow.Config {
	return clockflow.Config{
		AccuracyThresholdMeters: job.AccuracyWarningMeters,
		MaxFixAge:               cfg.LocationMaxAge,
		OverrideWindow:          cfg.OverrideWindow,
	}
}

// fixedLocation reports the same position on every request, captured now.
type fixedLocation struct {
	latitude  float64
	longitude float64
	accuracy  *float64
}

// Locate implements clockflow.LocationProvider.
func (l fixedLocation) Locate(context.Context) (geofence.LocationSample, error) {
	return geofence.LocationSample{
		Latitude:       l.latitude,
		Longitude:      l.longitude,
		AccuracyMeters: l.accuracy,
		CapturedAt:     time.Now().UTC(),
	}, nil
}

// simulateOptions are the worker decisions taken at each prompt.
type simulateOptions struct {
	eventType string
	jobID     string
	proceed   bool
	reason    string
	photoURL  string
}

// driveFlow starts an attempt on r and answers the accuracy and override
// prompts from opts. It returns the state the flow settles in.
func driveFlow(ctx context.Context, r *clockflow.Runner, opts simulateOptions) (clockflow.State, error) {
	var start clockflow.Event = clockflow.StartClockIn{JobID: opts.jobID}
	if opts.eventType == string(clock.EventTypeClockOut) {
		start = clockflow.StartClockOut{}
	}

	state, err := r.Dispatch(ctx, start)
	if err != nil {
		return state, err
	}

	if _, ok := state.(clockflow.AccuracyWarning); ok {
		next := clockflow.Event(clockflow.Cancel{})
		if opts.proceed {
			next = clockflow.ProceedAnyway{}
		}
		if state, err = r.Dispatch(ctx, next); err != nil {
			return state, err
		}
	}

	blocked, ok := state.(clockflow.Blocked)
	if !ok {
		return acknowledge(ctx, r, state)
	}
	if !blocked.Result.Verdict.CanOverride || (opts.reason == "" && opts.photoURL == "") {
		return r.Dispatch(ctx, clockflow.Acknowledge{})
	}

	if state, err = r.Dispatch(ctx, clockflow.BeginOverride{}); err != nil {
		return state, err
	}
	submit := clockflow.SubmitOverride{}
	if opts.reason != "" {
		submit.Reason = &opts.reason
	}
	if opts.photoURL != "" {
		submit.PhotoURL = &opts.photoURL
	}
	if state, err = r.Dispatch(ctx, submit); err != nil {
		return state, err
	}
	return acknowledge(ctx, r, state)
}

// acknowledge dismisses a granted or warned result.
func acknowledge(ctx context.Context, r *clockflow.Runner, state clockflow.State) (clockflow.State, error) {
	switch state.(type) {
	case clockflow.Granted, clockflow.Warned:
		return r.Dispatch(ctx, clockflow.Acknowledge{})
	}
	return state, nil
}

// describeState renders the outcome of a simulated attempt.
func describeState(s clockflow.State) map[string]interface{} {
	out := map[string]interface{}{"state": s.Name()}
	switch st := s.(type) {
	case clockflow.Idle:
		out["notice"] = st.Notice
		if st.Err != nil {
			out["error"] = st.Err.Error()
		}
	case clockflow.ClockedIn:
		out["job_id"] = st.JobID
		out["time_entry_id"] = st.TimeEntryID
		out["since"] = st.Since
		out["notice"] = st.Notice
		if st.Err != nil {
			out["error"] = st.Err.Error()
		}
	case clockflow.OverridePrompt:
		out["blocked_event_id"] = st.Blocked.EventID
		if st.Err != nil {
			out["error"] = st.Err.Error()
		}
	}
	return out
}

func simulateCmd() *cobra.Command {
	var (
		actor    actorFlags
		opts     simulateOptions
		lat, lon float64
		accuracy float64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one clock attempt through the worker flow against the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := actor.actor()
			if err != nil {
				return err
			}
			if opts.eventType != string(clock.EventTypeClockIn) && opts.eventType != string(clock.EventTypeClockOut) {
				return fmt.Errorf("event must be clock_in or clock_out")
			}
			if opts.jobID == "" {
				return fmt.Errorf("--job is required")
			}
			if !validCoordinate(lat, lon) {
				return fmt.Errorf("coordinates out of range")
			}

			location := fixedLocation{latitude: lat, longitude: lon}
			if cmd.Flags().Changed("accuracy") {
				location.accuracy = &accuracy
			}

			svc, err := newApp()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			job, err := svc.geofences.GetConfig(ctx, a.BusinessID, opts.jobID)
			if err != nil {
				return fmt.Errorf("failed to load geofence for job %s: %w", opts.jobID, err)
			}
			runner := clockflow.NewRunner(flowConfig(job, svc.clockCfg), location, clockflow.NewServiceBackend(svc.clock, a), nil)

			if opts.eventType == string(clock.EventTypeClockOut) {
				entry, err := svc.entries.GetOpen(ctx, a.BusinessID, a.UserID, opts.jobID)
				if err != nil {
					if errors.Is(err, clock.ErrNoOpenTimeEntry) {
						return fmt.Errorf("user has no open time entry on job %s", opts.jobID)
					}
					return err
				}
				runner.Restore(clockflow.ClockedIn{JobID: entry.JobID, TimeEntryID: &entry.ID, Since: entry.ClockIn})
			}

			state, err := driveFlow(ctx, runner, opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), describeState(state))
		},
	}

	actor.register(cmd, string(user.RoleWorker))
	cmd.Flags().StringVar(&opts.eventType, "event", string(clock.EventTypeClockIn), "clock_in or clock_out")
	cmd.Flags().StringVar(&opts.jobID, "job", "", "Job ID to clock in or out of")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Device latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Device longitude")
	cmd.Flags().Float64Var(&accuracy, "accuracy", 0, "Reported accuracy in meters (omit when unknown)")
	cmd.Flags().BoolVar(&opts.proceed, "proceed", false, "Proceed when the accuracy warning is shown")
	cmd.Flags().StringVar(&opts.reason, "reason", "", "Override reason if the attempt is blocked")
	cmd.Flags().StringVar(&opts.photoURL, "photo-url", "", "Override photo URL if the attempt is blocked")

	return cmd
}
