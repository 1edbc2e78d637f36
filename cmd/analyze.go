package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evsense/app"
	"github.com/kilianp07/evsense/core/model"
	"github.com/kilianp07/evsense/core/pipeline"
	"github.com/kilianp07/evsense/internal/eventbus"
)

var (
	analyzeSource   string
	analyzeSet      []string
	analyzeProgress bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis and print the report as JSON",
	RunE:  analyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeSource, "source", "s", "", "telemetry source: simulated or live (default from config)")
	analyzeCmd.Flags().StringArrayVar(&analyzeSet, "set", nil, "override a simulated reading field, e.g. --set voltage=320")
	analyzeCmd.Flags().BoolVar(&analyzeProgress, "progress", false, "print stage progress to stderr")
	rootCmd.AddCommand(analyzeCmd)
}

func analyze(cmd *cobra.Command, _ []string) error {
	overrides, err := parseOverrides(analyzeSet)
	if err != nil {
		return err
	}
	comp, err := app.Build(cfg)
	if err != nil {
		return err
	}
	if analyzeProgress {
		bus := eventbus.New[pipeline.Event]()
		comp.Pipeline.SetPublisher(bus)
		ch := bus.Subscribe(len(model.Stages) * 2)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			printProgress(cmd.ErrOrStderr(), ch)
		}()
		defer func() {
			bus.Close()
			wg.Wait()
		}()
	}

	rep, err := comp.Service.Analyze(cmd.Context(), app.Request{Source: analyzeSource, Reading: overrides})
	if err != nil {
		return fmt.Errorf("%s: %w", model.Describe(err), err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func printProgress(w io.Writer, ch <-chan pipeline.Event) {
	for ev := range ch {
		switch {
		case ev.Type == pipeline.StageStarted:
			fmt.Fprintf(w, "%-12s started\n", ev.Stage)
		case ev.Err != nil:
			fmt.Fprintf(w, "%-12s failed after %s: %s\n", ev.Stage, ev.Duration, model.Describe(ev.Err))
		default:
			fmt.Fprintf(w, "%-12s done in %s\n", ev.Stage, ev.Duration)
		}
	}
}

// parseOverrides turns key=value pairs into reading overrides. Numbers are
// parsed; anything else is passed through as a string.
func parseOverrides(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", p)
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			out[strings.TrimSpace(k)] = f
			continue
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}
