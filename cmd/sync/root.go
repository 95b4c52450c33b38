package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"courtsync/internal/app"
	"courtsync/internal/config"
	"courtsync/internal/logger"
	"courtsync/internal/models"
	"courtsync/internal/service"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local courts and bookings with AYO",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return err
		}
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	rootCmd.AddCommand(courtsCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(bookingsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Load environment from this file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr at debug level")
}

// withApp builds the dependencies for one command and closes them after.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.New(os.Stderr, level, "text")

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(service.WithTrigger(ctx, models.TriggerCLI), a)
}

// writeStats prints the stats as JSON, then returns the sync error, or a
// generic one when the run failed without one.
func writeStats(w io.Writer, stats *models.SyncStats, syncErr error) error {
	if stats != nil {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			return err
		}
	}
	if syncErr != nil {
		return syncErr
	}
	if stats != nil && !stats.Success {
		return errors.New("sync failed")
	}
	return nil
}
