package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level and output format of every component logger.
type Config struct {
	Level  string `json:"level" yaml:"level" koanf:"level"`
	Format string `json:"format" yaml:"format" koanf:"format"`
}

var (
	outMu  sync.RWMutex
	out    io.Writer = os.Stdout
	format string
)

// Validate checks the level and format without applying them.
func (c Config) Validate() error {
	_, _, err := c.parse()
	return err
}

func (c Config) parse() (zerolog.Level, string, error) {
	lvl := zerolog.InfoLevel
	if c.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(c.Level))
		if err != nil {
			return lvl, "", fmt.Errorf("log level: %w", err)
		}
		lvl = l
	}
	f := strings.ToLower(c.Format)
	switch f {
	case "", "json", "console":
	default:
		return lvl, "", fmt.Errorf("log format %q", c.Format)
	}
	return lvl, f, nil
}

// Configure applies cfg process-wide. An empty format falls back to APP_ENV:
// "dev" selects the console writer, anything else JSON.
func Configure(cfg Config) error {
	lvl, f, err := cfg.parse()
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	outMu.Lock()
	format = f
	outMu.Unlock()
	return nil
}

// SetOutput redirects subsequently created loggers to w.
func SetOutput(w io.Writer) {
	outMu.Lock()
	out = w
	outMu.Unlock()
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger. All logs include the provided
// component field.
func NewZerologLogger(component string) Logger {
	outMu.RLock()
	w, f := out, format
	outMu.RUnlock()
	if f == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		f = "console"
	}
	if f == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Infow(msg string, fields map[string]any) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
