// Package telemetry implements the live feed source backed by the ingestion
// service's GET /latest endpoint.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/evsense/core/factory"
	"github.com/kilianp07/evsense/core/ingest"
	"github.com/kilianp07/evsense/core/logger"
	"github.com/kilianp07/evsense/core/model"
	coretelemetry "github.com/kilianp07/evsense/core/telemetry"
	inflogger "github.com/kilianp07/evsense/infra/logger"
	"github.com/kilianp07/evsense/internal/httputil"
)

// DefaultTimeout bounds every /latest request.
const DefaultTimeout = 3 * time.Second

// maxBody caps the size of a /latest response.
const maxBody = 1 << 20

// ErrNoData means the ingestion service holds no reading.
var ErrNoData = errors.New("ingestion service has no data")

// Config describes the live feed.
type Config struct {
	URL                string  `json:"url"`
	TimeoutSeconds     float64 `json:"timeout_seconds"`
	WeightField        string  `json:"weight_field"`
	DefaultBatteryTemp float64 `json:"default_battery_temp"`
}

// Timeout returns the effective request timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// LiveFeed reads the most recent upload from the ingestion service.
type LiveFeed struct {
	cfg    Config
	client httputil.Doer
	log    logger.Logger
	now    func() time.Time
}

// NewLiveFeed returns a LiveFeed. A nil client gets an *http.Client bounded by
// the configured timeout.
func NewLiveFeed(cfg Config, client httputil.Doer) (*LiveFeed, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("live feed url required")
	}
	switch cfg.WeightField {
	case "":
		cfg.WeightField = ingest.FieldLoadWeight
	case ingest.FieldLoadWeight, ingest.FieldLoadCycles:
	default:
		return nil, fmt.Errorf("unknown weight field %q", cfg.WeightField)
	}
	if cfg.DefaultBatteryTemp == 0 {
		cfg.DefaultBatteryTemp = ingest.DefaultBatteryTemp
	}
	if client == nil {
		client = httputil.NewClient(cfg.Timeout(), DefaultTimeout)
	}
	return &LiveFeed{cfg: cfg, client: client, log: inflogger.New("livefeed"), now: time.Now}, nil
}

// Reading fetches one reading. Any transport or protocol failure is reported
// as model.ErrUnavailable; a malformed reading is a *model.ValidationError.
func (f *LiveFeed) Reading(ctx context.Context) (model.SensorReading, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout())
	defer cancel()

	url := strings.TrimSuffix(f.cfg.URL, "/") + "/latest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.SensorReading{}, model.Unavailable(err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warnf("live feed %s: %v", url, err)
		return model.SensorReading{}, model.Unavailable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return model.SensorReading{}, model.Unavailable(err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.SensorReading{}, model.Unavailable(ErrNoData)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return model.SensorReading{}, model.Unavailable(fmt.Errorf("live feed status %d", resp.StatusCode))
	}

	var status struct {
		Status string `json:"status"`
	}
	if json.Unmarshal(body, &status) == nil && status.Status == "no_data" {
		return model.SensorReading{}, model.Unavailable(ErrNoData)
	}
	var doc ingest.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return model.SensorReading{}, model.Unavailable(fmt.Errorf("decode live reading: %w", err))
	}
	r, err := doc.Reading(ingest.ReadingOptions{
		WeightField:        f.cfg.WeightField,
		DefaultBatteryTemp: f.cfg.DefaultBatteryTemp,
		Now:                f.now,
	})
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			return model.SensorReading{}, err
		}
		return model.SensorReading{}, model.Unavailable(err)
	}
	f.log.Debugw("live reading", map[string]any{"voltage": r.Voltage, "captured_at": r.CapturedAt})
	return r, nil
}

func init() {
	err := coretelemetry.RegisterSource(coretelemetry.ModeLive, func(conf map[string]any) (coretelemetry.Source, error) {
		var cfg Config
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewLiveFeed(cfg, nil)
	})
	if err != nil {
		panic(err)
	}
}
