package observability_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arclight-data/dataflow/pkg/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.Nil(t, providers.PrometheusGatherer)

	// No-op providers still produce usable spans and instruments.
	ctx, span := providers.Tracer.Start(context.Background(), "test-op")
	assert.NotNil(t, ctx)
	span.End()

	counter, counterErr := providers.Meter.Int64Counter("test_counter")
	require.NoError(t, counterErr)
	counter.Add(ctx, 1)

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_ShutdownIdempotent(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, providers.Shutdown(context.Background()))
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_PrometheusGathererWiredWhenEnabled(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.PrometheusMetrics = true

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	require.NotNil(t, providers.PrometheusGatherer)

	counter, counterErr := providers.Meter.Int64Counter("test_counter")
	require.NoError(t, counterErr)
	counter.Add(context.Background(), 1)

	families, gatherErr := providers.PrometheusGatherer.Gather()
	require.NoError(t, gatherErr)
	assert.NotEmpty(t, families)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
	} {
		got, err := observability.ParseLogLevel(name)
		require.NoError(t, err, "level %q", name)
		assert.Equal(t, want, got, "level %q", name)
	}

	_, err := observability.ParseLogLevel("verbose")
	assert.ErrorIs(t, err, observability.ErrUnknownLogLevel)
}
