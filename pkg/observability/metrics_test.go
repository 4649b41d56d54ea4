package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/arclight-data/dataflow/pkg/observability"
)

func TestNewSchedulerMetrics_RecordsWithoutError(t *testing.T) {
	t.Parallel()

	meter := noop.NewMeterProvider().Meter("test")

	m, err := observability.NewSchedulerMetrics(meter)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordStep(ctx, 0.002)
	m.RecordEval(ctx, "join_trace", 1, 0.0005)
	m.RecordFixedpoint(ctx, 1, 3)
	m.RecordFixedpointTimeout(ctx, 1)
}
