// Package cmd implements the evsense command line.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evsense/config"
	coremon "github.com/kilianp07/evsense/core/monitoring"
	"github.com/kilianp07/evsense/infra/logger"
	_ "github.com/kilianp07/evsense/infra/metrics"
	"github.com/kilianp07/evsense/infra/monitoring"
	_ "github.com/kilianp07/evsense/infra/telemetry"
	"github.com/kilianp07/evsense/infra/tracing"
)

// Version is set at build time.
var Version = "dev"

var (
	cfgPath string
	cfg     *config.Config
	tracer  tracing.Shutdown
)

var rootCmd = &cobra.Command{
	Use:               "evsense",
	Short:             "EV battery analysis pipeline",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// setup loads the configuration and starts the process-wide logging,
// monitoring and tracing.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Configure(c.Log); err != nil {
		return err
	}
	if c.Sentry.Release == "" {
		c.Sentry.Release = Version
	}
	mon, err := monitoring.NewSentryMonitor(c.Sentry)
	if err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	shutdown, err := tracing.Init(cmd.Context(), c.Tracing, Version)
	if err != nil {
		return err
	}
	cfg, tracer = c, shutdown
	return nil
}

func teardown(*cobra.Command, []string) {
	if tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer(ctx); err != nil {
			logger.New("main").Errorf("tracing shutdown: %v", err)
		}
	}
	coremon.Flush(2 * time.Second)
}
