// Package logger backs core/logger with zerolog.
package logger

import corelogger "github.com/kilianp07/evsense/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Infow(string, map[string]any)  {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns a Logger tagged with component. Output format follows the
// process-wide settings applied by Configure.
func New(component string) Logger {
	return NewZerologLogger(component)
}
