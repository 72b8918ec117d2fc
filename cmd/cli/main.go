package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mateusz-wlodarczyk/boatwatch/internal/config"
	"github.com/mateusz-wlodarczyk/boatwatch/pkg/clients/charterapi"
	"github.com/mateusz-wlodarczyk/boatwatch/pkg/clients/resilient"
	"github.com/mateusz-wlodarczyk/boatwatch/pkg/core/services"
	"github.com/mateusz-wlodarczyk/boatwatch/pkg/db"
	"github.com/mateusz-wlodarczyk/boatwatch/pkg/postgres"
	"github.com/mateusz-wlodarczyk/boatwatch/pkg/ratelimit"
	"github.com/mateusz-wlodarczyk/boatwatch/pkg/utils/logging"
)

// App holds the application dependencies
type App struct {
	cfg      *config.Config
	client   *charterapi.Client
	database *postgres.DB
	pacer    *ratelimit.Pacer
	logger   *zap.Logger
	ctx      context.Context
}

var (
	env string
	app *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "boatwatch",
		Short: "Boatwatch CLI - keep boat price/availability history current",
		Long: `A CLI tool for the boat price dashboard's background jobs: refreshing the
boat catalog from the charter search API and reconciling per-week price
snapshots for every tracked boat.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.logger != nil {
					app.logger.Sync()
				}
				if app.database != nil {
					app.database.Close()
				}
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(syncAvailabilityCmd())
	rootCmd.AddCommand(syncListingCmd())
	rootCmd.AddCommand(listBoatsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, charter API client, and database
func initApp() error {
	var err error
	app = &App{
		ctx: context.Background(),
	}

	// No .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	app.logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger.Info("Starting application", zap.String("environment", env))

	app.logger.Info("Loading configuration")
	app.cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.logger.Debug("Configuration loaded successfully")

	app.logger.Info("Connecting to database")
	app.database, err = postgres.NewDB(app.ctx, app.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	app.logger.Info("Running database migrations")
	if err := app.database.RunMigrations(app.ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	app.logger.Debug("Database ready")

	app.logger.Info("Initializing charter API client", zap.String("base_url", app.cfg.CharterBaseURL))
	httpClient := resilient.New(app.logger)
	app.client = charterapi.NewClient(app.cfg.CharterBaseURL, app.cfg.CharterAPIKey, httpClient, app.logger)

	app.pacer = ratelimit.NewPacer(app.cfg.InterBoatDelay())
	app.logger.Debug("Pacer initialized", zap.Duration("inter_boat_delay", app.cfg.InterBoatDelay()))

	return nil
}

// Command definitions

func syncAvailabilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "syncAvailability [end_year]",
		Short: "Reconcile weekly price snapshots for every tracked boat",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endYear := app.cfg.EndYear
			if len(args) > 0 {
				parsed, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("end_year must be a number: %w", err)
				}
				endYear = parsed
			}

			boats, err := trackedBoats()
			if err != nil {
				return err
			}
			if len(boats) == 0 {
				fmt.Println("No tracked boats - run syncListing first or set trackedBoats in config.")
				return nil
			}

			result, err := services.SyncAvailability(
				app.ctx,
				app.database,
				app.client,
				app.pacer,
				app.logger,
				boats,
				endYear,
				time.Now(),
			)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Availability sync completed!\n\n")
			fmt.Printf("Run ID:     %s\n", result.RunID)
			fmt.Printf("Processed:  %d boats\n", result.BoatsProcessed)
			fmt.Printf("Skipped:    %d boats (no availability data)\n", result.BoatsSkipped)
			fmt.Printf("Failed:     %d boats\n", result.BoatsFailed)
			fmt.Printf("Quotes:     %d merged\n\n", result.QuotesMerged)

			return nil
		},
	}
}

func syncListingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "syncListing",
		Short: "Refresh the boat catalog from the charter search API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.SyncListing(
				app.ctx,
				app.database,
				app.client,
				app.logger,
				app.cfg.ListingCountry,
				app.cfg.ListingCategory,
			)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Listing sync completed!\n\n")
			fmt.Printf("Pages:    %d\n", result.Pages)
			fmt.Printf("Upserted: %d boats\n", result.Upserted)
			fmt.Printf("Failed:   %d boats\n", result.Failed)
			fmt.Printf("Catalog:  %d boats total\n\n", result.TotalBoats)

			return nil
		},
	}
}

func listBoatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listBoats",
		Short: "List all tracked boats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			boats, err := app.database.ListTrackedBoats(app.ctx)
			if err != nil {
				return fmt.Errorf("failed to list boats: %w", err)
			}

			fmt.Printf("\nFound %d tracked boats:\n\n", len(boats))
			for _, b := range boats {
				fmt.Printf("- %s (%s, %s) - %d cabins, %d berths - %s, %s\n",
					b.Name, b.Slug, b.Model, b.Cabins, b.Berths, b.Marina, b.Country)
			}

			return nil
		},
	}
}

// trackedBoats resolves the boats to sync: the config override list when set,
// otherwise every tracked boat in the database.
func trackedBoats() ([]db.Boat, error) {
	if len(app.cfg.TrackedBoats) > 0 {
		boats := make([]db.Boat, 0, len(app.cfg.TrackedBoats))
		for _, slug := range app.cfg.TrackedBoats {
			boats = append(boats, db.Boat{Slug: slug, Tracked: true})
		}
		app.logger.Info("Using tracked boats from config", zap.Int("count", len(boats)))
		return boats, nil
	}

	boats, err := app.database.ListTrackedBoats(app.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked boats: %w", err)
	}
	return boats, nil
}
