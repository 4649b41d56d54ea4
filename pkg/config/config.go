// Package config loads the host-facing tuning knobs for the dataflow
// engine: iteration caps, trace compaction thresholds, and the
// observability/demo toggles dataflowctl exposes. None of this
// configures circuit semantics — those are fixed once a circuit is
// built — it only tunes how the scheduler and its surrounding ambient
// stack behave.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidMaxIterations   = errors.New("scheduler max fixedpoint iterations must be positive")
	ErrInvalidCompactionRatio = errors.New("trace compaction factor must be at least 1")
	ErrInvalidLogLevel        = errors.New("unrecognized log level")
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Config is the complete set of tuning knobs a host can load for a
// dataflowctl run or an embedding application.
type Config struct {
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Trace         TraceConfig         `mapstructure:"trace"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Demo          DemoConfig          `mapstructure:"demo"`
}

// SchedulerConfig tunes nested-circuit fixed-point evaluation.
type SchedulerConfig struct {
	// MaxFixedpointIterations bounds how many inner ticks a nested
	// scope's Iterate loop runs before giving up with
	// circuit.ErrFixedpointNotReached.
	MaxFixedpointIterations int `mapstructure:"max_fixedpoint_iterations"`
}

// TraceConfig tunes spine compaction.
type TraceConfig struct {
	// CompactionFactor controls how aggressively adjacent spine batches
	// merge: a new batch folds into its predecessor whenever the
	// predecessor is no more than this many times larger.
	CompactionFactor int `mapstructure:"compaction_factor"`
}

// ObservabilityConfig controls tracing/metrics/logging bootstrap.
type ObservabilityConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	MetricsOn    bool   `mapstructure:"metrics_enabled"`
	LogLevel     string `mapstructure:"log_level"`
	LogJSON      bool   `mapstructure:"log_json"`
}

// DemoConfig selects and sizes the worked example dataflowctl drives.
type DemoConfig struct {
	// Name selects a worked scenario: "transitive-closure",
	// "label-propagation" or "incremental-join".
	Name  string `mapstructure:"name"`
	Steps int    `mapstructure:"steps"`
}

const (
	defaultMaxFixedpointIterations = 10_000
	defaultCompactionFactor        = 2
	defaultDemoSteps               = 4
)

// LoadConfig loads configuration from an optional file plus environment
// variable overrides, falling back to defaults for anything unset.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("dataflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("DATAFLOW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scheduler.max_fixedpoint_iterations", defaultMaxFixedpointIterations)
	v.SetDefault("trace.compaction_factor", defaultCompactionFactor)
	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_insecure", false)
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_json", false)
	v.SetDefault("demo.name", "transitive-closure")
	v.SetDefault("demo.steps", defaultDemoSteps)
}

func validateConfig(cfg *Config) error {
	if cfg.Scheduler.MaxFixedpointIterations <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxIterations, cfg.Scheduler.MaxFixedpointIterations)
	}

	if cfg.Trace.CompactionFactor < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidCompactionRatio, cfg.Trace.CompactionFactor)
	}

	if !validLogLevels[strings.ToLower(cfg.Observability.LogLevel)] {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Observability.LogLevel)
	}

	return nil
}
