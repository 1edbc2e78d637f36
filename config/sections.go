package config

import (
	"fmt"
	"net/url"

	"github.com/kilianp07/evsense/core/factory"
	"github.com/kilianp07/evsense/core/model"
	"github.com/kilianp07/evsense/core/telemetry"
)

// ArtifactsConfig locates the model repository and the local cache.
type ArtifactsConfig struct {
	BaseURL        string            `json:"base_url"`
	CacheDir       string            `json:"cache_dir"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	Files          map[string]string `json:"files"`
	// Prefetch downloads every artifact when the server starts.
	Prefetch bool `json:"prefetch"`
}

func (c *ArtifactsConfig) SetDefaults() {
	if c.CacheDir == "" {
		c.CacheDir = "./models"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 60
	}
}

// Validate requires an absolute repository URL and known stage names.
func (c ArtifactsConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("artifacts.base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("artifacts.base_url %q is not an absolute url", c.BaseURL)
	}
	for stage := range c.Files {
		if !model.StageName(stage).Valid() {
			return fmt.Errorf("artifacts.files: unknown stage %q", stage)
		}
	}
	return nil
}

// StageFiles returns the file overrides keyed by stage.
func (c ArtifactsConfig) StageFiles() map[model.StageName]string {
	out := make(map[model.StageName]string, len(c.Files))
	for k, v := range c.Files {
		out[model.StageName(k)] = v
	}
	return out
}

// TelemetryConfig selects where readings come from.
type TelemetryConfig struct {
	// Mode is "simulated" or "live".
	Mode               string  `json:"mode"`
	URL                string  `json:"url"`
	TimeoutSeconds     float64 `json:"timeout_seconds"`
	WeightField        string  `json:"weight_field"`
	DefaultBatteryTemp float64 `json:"default_battery_temp"`
	// Reading overrides the simulated defaults.
	Reading map[string]any `json:"reading"`
}

func (c *TelemetryConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = telemetry.ModeSimulated
	}
	if c.URL == "" {
		c.URL = "http://localhost:8000"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 3
	}
	if c.WeightField == "" {
		c.WeightField = "load_weight"
	}
	if c.DefaultBatteryTemp == 0 {
		c.DefaultBatteryTemp = 35
	}
}

func (c TelemetryConfig) Validate() error {
	switch c.Mode {
	case telemetry.ModeSimulated, telemetry.ModeLive:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	switch c.WeightField {
	case "load_weight", "load_cycles":
	default:
		return fmt.Errorf("weight_field must be load_weight or load_cycles, got %q", c.WeightField)
	}
	return nil
}

// Module returns the source definition for mode. An empty mode uses c.Mode.
func (c TelemetryConfig) Module(mode string) factory.ModuleConfig {
	if mode == "" {
		mode = c.Mode
	}
	if mode == telemetry.ModeLive {
		return factory.ModuleConfig{Type: mode, Conf: map[string]any{
			"url":                  c.URL,
			"timeout_seconds":      c.TimeoutSeconds,
			"weight_field":         c.WeightField,
			"default_battery_temp": c.DefaultBatteryTemp,
		}}
	}
	conf := make(map[string]any, len(c.Reading))
	for k, v := range c.Reading {
		conf[k] = v
	}
	return factory.ModuleConfig{Type: mode, Conf: conf}
}

// IngestConfig configures the ingestion service.
type IngestConfig struct {
	Addr string           `json:"addr"`
	MQTT IngestMQTTConfig `json:"mqtt"`
}

// IngestMQTTConfig enables the MQTT upload path. Broker settings live in the
// top-level mqtt section.
type IngestMQTTConfig struct {
	Enabled bool   `json:"enabled"`
	Topic   string `json:"topic"`
}

func (c *IngestConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
}

// APIConfig configures the analysis API.
type APIConfig struct {
	Addr string `json:"addr"`
}

func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// SentryConfig defines settings for Sentry error monitoring.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
}

// TracingConfig configures the OTLP/HTTP trace exporter. An empty endpoint
// disables tracing.
type TracingConfig struct {
	Endpoint    string  `json:"endpoint"`
	ServiceName string  `json:"service_name"`
	Insecure    bool    `json:"insecure"`
	SampleRatio float64 `json:"sample_ratio"`
}

func (c *TracingConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "evsense"
	}
	if c.SampleRatio == 0 {
		c.SampleRatio = 1
	}
}

func (c TracingConfig) Validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("sample_ratio must be within [0, 1]")
	}
	return nil
}
