// Package config loads the evsense configuration from a YAML or JSON file with
// EVSENSE_ environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/evsense/core/metrics"
	"github.com/kilianp07/evsense/core/pipeline"
	"github.com/kilianp07/evsense/infra/logger"
	"github.com/kilianp07/evsense/infra/mqtt"
)

// EnvPrefix marks environment overrides. Nested keys use "__", for example
// EVSENSE_ARTIFACTS__BASE_URL.
const EnvPrefix = "EVSENSE_"

type Config struct {
	Log       logger.Config   `json:"log"`
	Artifacts ArtifactsConfig `json:"artifacts"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Pipeline  pipeline.Config `json:"pipeline"`
	Ingest    IngestConfig    `json:"ingest"`
	API       APIConfig       `json:"api"`
	MQTT      mqtt.Config     `json:"mqtt"`
	Metrics   metrics.Config  `json:"metrics"`
	Sentry    SentryConfig    `json:"sentry"`
	Tracing   TracingConfig   `json:"tracing"`
}

// Load reads path (may be empty to use defaults and the environment only),
// applies defaults and validates every section that is always in use.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Artifacts.SetDefaults()
	c.Telemetry.SetDefaults()
	c.Ingest.SetDefaults()
	c.API.SetDefaults()
	c.Tracing.SetDefaults()
	if c.Ingest.MQTT.Enabled {
		c.MQTT.SetDefaults()
		if c.Ingest.MQTT.Topic != "" {
			c.MQTT.Topic = c.Ingest.MQTT.Topic
		}
	}
}

// Validate checks the sections used by every command. Artifacts are checked
// separately by the commands that run the pipeline.
func (c Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if c.Ingest.MQTT.Enabled {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics: sink %d has no type", i)
		}
	}
	return nil
}
