package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apiingest "github.com/kilianp07/evsense/api/ingest"
	"github.com/kilianp07/evsense/core/ingest"
	"github.com/kilianp07/evsense/infra/logger"
	"github.com/kilianp07/evsense/infra/metrics"
	"github.com/kilianp07/evsense/infra/mqtt"
	"github.com/kilianp07/evsense/internal/httputil"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run the ingestion service holding the latest vehicle reading",
	RunE:  runIngest,
}

var (
	publishFile      string
	publishTransport string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload one reading the way a vehicle gateway does",
	RunE:  publishReading,
}

func init() {
	publishCmd.Flags().StringVarP(&publishFile, "file", "f", "-", "JSON reading to upload (- for stdin)")
	publishCmd.Flags().StringVar(&publishTransport, "transport", apiingest.TransportHTTP, "upload transport: http or mqtt")
	ingestCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.New("ingest")

	srv, err := apiingest.NewServer(ingest.NewSlot(), prometheus.DefaultRegisterer, log)
	if err != nil {
		return err
	}
	if cfg.Ingest.MQTT.Enabled {
		sub, err := mqtt.NewUploadSubscriber(cfg.MQTT, srv)
		if err != nil {
			return fmt.Errorf("mqtt subscriber: %w", err)
		}
		defer sub.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	if addr := cfg.Metrics.PrometheusAddr; addr != "" {
		g.Go(func() error { return metrics.StartPromServer(gctx, addr) })
	}
	g.Go(func() error {
		log.Infof("ingestion service listening on %s", cfg.Ingest.Addr)
		return listen(gctx, &http.Server{Addr: cfg.Ingest.Addr, Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second})
	})
	return g.Wait()
}

func publishReading(cmd *cobra.Command, _ []string) error {
	var in io.Reader = cmd.InOrStdin()
	if publishFile != "-" {
		f, err := os.Open(publishFile)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	var doc ingest.Document
	if err := json.NewDecoder(in).Decode(&doc); err != nil {
		return fmt.Errorf("decode reading: %w", err)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	switch publishTransport {
	case mqtt.Transport:
		mcfg := cfg.MQTT
		if cfg.Ingest.MQTT.Topic != "" {
			mcfg.Topic = cfg.Ingest.MQTT.Topic
		}
		if err := mcfg.Validate(); err != nil {
			return err
		}
		pub, err := mqtt.NewUploadPublisher(mcfg)
		if err != nil {
			return fmt.Errorf("mqtt publisher: %w", err)
		}
		defer pub.Close()
		return pub.Publish(ctx, doc)
	case apiingest.TransportHTTP:
		return postReading(ctx, httputil.NewClient(10*time.Second, 10*time.Second), cfg.Telemetry.URL, doc)
	default:
		return fmt.Errorf("unknown transport %q", publishTransport)
	}
}

func postReading(ctx context.Context, client httputil.Doer, baseURL string, doc ingest.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	url := strings.TrimSuffix(baseURL, "/") + "/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload to %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
