package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evsense/app"
	coremetrics "github.com/kilianp07/evsense/core/metrics"
	"github.com/kilianp07/evsense/core/model"
	"github.com/kilianp07/evsense/infra/logger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download every model artifact into the local cache",
	RunE:  fetchArtifacts,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func fetchArtifacts(cmd *cobra.Command, _ []string) error {
	if err := cfg.Artifacts.Validate(); err != nil {
		return err
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return fmt.Errorf("metrics sink: %w", err)
	}
	reg, err := app.NewRegistry(cfg.Artifacts, sink)
	if err != nil {
		return err
	}
	if err := reg.Prefetch(cmd.Context()); err != nil {
		return fmt.Errorf("%s: %w", model.Describe(err), err)
	}
	log := logger.New("fetch")
	for _, st := range model.Stages {
		name, _ := reg.File(st)
		log.Infof("%s ready: %s", st, name)
	}
	return nil
}
