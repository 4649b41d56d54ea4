package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arclight-data/dataflow/pkg/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 10_000, cfg.Scheduler.MaxFixedpointIterations)
	assert.Equal(t, 2, cfg.Trace.CompactionFactor)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsOn)
	assert.Equal(t, "transitive-closure", cfg.Demo.Name)
	assert.Equal(t, 4, cfg.Demo.Steps)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	raw, err := yaml.Marshal(map[string]any{
		"scheduler": map[string]any{"max_fixedpoint_iterations": 500},
		"trace":     map[string]any{"compaction_factor": 4},
		"demo":      map[string]any{"name": "label-propagation", "steps": 8},
	})
	require.NoError(t, err)

	content := string(raw)

	tmpDir := t.TempDir()

	tmpFile, err := os.CreateTemp(tmpDir, "test-config-*.yaml")
	require.NoError(t, err)

	_, writeErr := tmpFile.WriteString(content)
	require.NoError(t, writeErr)
	require.NoError(t, tmpFile.Close())

	cfg, loadErr := config.LoadConfig(tmpFile.Name())
	require.NoError(t, loadErr)

	assert.Equal(t, 500, cfg.Scheduler.MaxFixedpointIterations)
	assert.Equal(t, 4, cfg.Trace.CompactionFactor)
	assert.Equal(t, "label-propagation", cfg.Demo.Name)
	assert.Equal(t, 8, cfg.Demo.Steps)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("DATAFLOW_SCHEDULER_MAX_FIXEDPOINT_ITERATIONS", "42")
	t.Setenv("DATAFLOW_DEMO_NAME", "label-propagation")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Scheduler.MaxFixedpointIterations)
	assert.Equal(t, "label-propagation", cfg.Demo.Name)
}

func TestLoadConfig_InvalidMaxIterations(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	cfgPath := tmpDir + "/bad.yaml"
	require.NoError(t, os.WriteFile(cfgPath, []byte("scheduler:\n  max_fixedpoint_iterations: 0\n"), 0o600))

	cfg, err := config.LoadConfig(cfgPath)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, config.ErrInvalidMaxIterations)
}

func TestLoadConfig_InvalidCompactionFactor(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	cfgPath := tmpDir + "/bad.yaml"
	require.NoError(t, os.WriteFile(cfgPath, []byte("trace:\n  compaction_factor: 0\n"), 0o600))

	cfg, err := config.LoadConfig(cfgPath)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, config.ErrInvalidCompactionRatio)
}

func TestLoadConfig_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	cfgPath := tmpDir + "/bad.yaml"
	require.NoError(t, os.WriteFile(cfgPath, []byte("observability:\n  log_level: verbose\n"), 0o600))

	cfg, err := config.LoadConfig(cfgPath)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, config.ErrInvalidLogLevel)
}

func TestLoadConfig_MalformedYAML_ReturnsError(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	cfgPath := tmpDir + "/bad.yaml"
	require.NoError(t, os.WriteFile(cfgPath, []byte("scheduler:\n  max_fixedpoint_iterations: [invalid\n"), 0o600))

	cfg, err := config.LoadConfig(cfgPath)
	require.Error(t, err)
	assert.Nil(t, cfg)
}
