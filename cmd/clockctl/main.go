// Package main provides clockctl, the operator CLI for the time clock.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/config"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/logger"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/utils"
	"github.com/spf13/cobra"
)

const appName = "clockctl"

// Version is set at build time.
var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// actorFlags identify the caller that commands act on behalf of.
type actorFlags struct {
	userID     string
	businessID string
	role       string
}

func (f *actorFlags) register(cmd *cobra.Command, defaultRole string) {
	cmd.Flags().StringVar(&f.userID, "user", "", "User ID to act as")
	cmd.Flags().StringVar(&f.businessID, "business", "", "Business ID of the user")
	cmd.Flags().StringVar(&f.role, "role", defaultRole, "Role of the user (owner, manager, worker)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("business")
}

func (f *actorFlags) actor() (user.Actor, error) {
	role := user.Role(f.role)
	if _, ok := user.RolePermissions[role]; !ok {
		return user.Actor{}, fmt.Errorf("unknown role %q", f.role)
	}
	return user.Actor{UserID: f.userID, BusinessID: f.businessID, Role: role}, nil
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Operate the geofenced time clock",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logger.NewWithWriter(os.Stderr, logLevel))
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		migrateCmd(),
		distanceCmd(),
		summaryCmd(),
		tokenCmd(),
		simulateCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			applied, err := db.Migrate(ctx)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}
}

func distanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distance LAT1 LON1 LAT2 LON2",
		Short: "Print the great-circle distance in meters between two points",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords := make([]float64, len(args))
			for i, arg := range args {
				v, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("invalid coordinate %q: %w", arg, err)
				}
				coords[i] = v
			}
			if !validCoordinate(coords[0], coords[1]) || !validCoordinate(coords[2], coords[3]) {
				return fmt.Errorf("coordinates out of range")
			}

			meters := utils.CalculateHaversineDistance(coords[0], coords[1], coords[2], coords[3])
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", meters)
			return nil
		},
	}
}

func validCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func summaryCmd() *cobra.Command {
	var (
		actor     actorFlags
		jobID     string
		workerID  string
		startDate string
		endDate   string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print violation and override counts from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := actor.actor()
			if err != nil {
				return err
			}

			filter := clock.SummaryFilter{}
			if jobID != "" {
				filter.JobID = &jobID
			}
			if workerID != "" {
				filter.UserID = &workerID
			}
			if startDate != "" {
				filter.StartDate = &startDate
			}
			if endDate != "" {
				filter.EndDate = &endDate
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			summary, err := app.clock.Summary(ctx, a, filter)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}

	actor.register(cmd, string(user.RoleOwner))
	cmd.Flags().StringVar(&jobID, "job", "", "Restrict to one job")
	cmd.Flags().StringVar(&workerID, "worker", "", "Restrict to one worker")
	cmd.Flags().StringVar(&startDate, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "to", "", "End date (YYYY-MM-DD), inclusive")

	return cmd
}

func tokenCmd() *cobra.Command {
	var actor actorFlags

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := actor.actor()
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			service, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
			if err != nil {
				return err
			}

			token, expiresAt, err := service.GenerateAccessToken(a)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"access_token": token,
				"expires_at":   time.Unix(expiresAt, 0).UTC(),
			})
		},
	}

	actor.register(cmd, string(user.RoleWorker))
	return cmd
}

func connect() (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: 2,
		MinConns: 1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, db, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withTimeout bounds commands that talk to the database.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 30*time.Second)
}
