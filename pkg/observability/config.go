// Package observability carries the ambient telemetry for circuit
// hosts: a structured logger whose records cross-reference the active
// span, an optional OTLP span exporter for hosts that run behind a
// collector, and Prometheus-scrapable scheduler metrics. The surface is
// deliberately small — a process embedding this engine steps circuits
// on one thread and needs step-level telemetry, not a service mesh's.
package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const defaultShutdownTimeout = 5 * time.Second

// AppMode names the kind of process the circuit is embedded in,
// attached to every log record and exported span so a one-shot
// dataflowctl run and a long-lived host are distinguishable in the same
// backend.
type AppMode string

const (
	// ModeCLI is a short-lived dataflowctl invocation.
	ModeCLI AppMode = "cli"
	// ModeServer is a long-lived host process embedding one or more
	// circuits.
	ModeServer AppMode = "server"
)

// Config holds the telemetry bootstrap knobs a host passes to Init.
// The zero OTLPEndpoint selects a no-op tracer with the structured
// logger still attached, which is what a plain dataflowctl run uses.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Mode           AppMode

	// OTLPEndpoint is the gRPC endpoint spans and metrics export to;
	// empty disables export entirely.
	OTLPEndpoint string
	OTLPInsecure bool

	// PrometheusMetrics adds a Prometheus reader to the meter provider
	// so a host can scrape scheduler metrics locally, collector or not.
	PrometheusMetrics bool

	LogLevel slog.Level
	LogJSON  bool

	// ShutdownTimeout bounds how long Shutdown waits for exporters to
	// flush; zero falls back to a small default.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config suitable for a local dataflowctl run:
// no export, text logging at info level, CLI mode.
func DefaultConfig() Config {
	return Config{
		ServiceName:     "dataflowctl",
		Mode:            ModeCLI,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// LogLevel is the slog severity Config carries, aliased so callers
// configuring observability never import log/slog themselves.
type LogLevel = slog.Level

// ErrUnknownLogLevel is returned by ParseLogLevel for a name outside
// debug/info/warn/error.
var ErrUnknownLogLevel = errors.New("observability: unknown log level")

// ParseLogLevel maps a config-file level name to its slog severity.
func ParseLogLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLogLevel, name)
	}
}
