package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func attrString(key, value string) attribute.KeyValue { return attribute.String(key, value) }

func attrInt(key string, value int) attribute.KeyValue { return attribute.Int(key, value) }

// SchedulerMetrics wraps the OTel instruments a RootCircuit reports
// through on every Step call: how long each step took, how many
// operators ran, and how many inner iterations a nested scope needed to
// reach a fixed point. A host reads these through whatever readers Init
// wired into the Meter — the Prometheus registry, the OTLP exporter, or
// the no-op provider that simply discards them.
type SchedulerMetrics struct {
	stepDuration      metric.Float64Histogram
	evalDuration      metric.Float64Histogram
	fixedpointIters   metric.Int64Histogram
	stepsTotal        metric.Int64Counter
	fixedpointTimeout metric.Int64Counter
}

// NewSchedulerMetrics creates the scheduler's instruments on the given
// meter. Call once per circuit instance (or share across instances; the
// instruments themselves are stateless aside from their recorded data).
func NewSchedulerMetrics(meter metric.Meter) (*SchedulerMetrics, error) {
	stepDuration, err := meter.Float64Histogram(
		"dataflow_step_duration_seconds",
		metric.WithDescription("wall time of one RootCircuit.Step call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create step duration histogram: %w", err)
	}

	evalDuration, err := meter.Float64Histogram(
		"dataflow_operator_eval_duration_seconds",
		metric.WithDescription("wall time of one operator's eval call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create eval duration histogram: %w", err)
	}

	fixedpointIters, err := meter.Int64Histogram(
		"dataflow_fixedpoint_iterations",
		metric.WithDescription("number of inner iterations a nested scope took to reach a fixed point"),
	)
	if err != nil {
		return nil, fmt.Errorf("create fixedpoint iterations histogram: %w", err)
	}

	stepsTotal, err := meter.Int64Counter(
		"dataflow_steps_total",
		metric.WithDescription("number of RootCircuit.Step calls completed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create steps counter: %w", err)
	}

	fixedpointTimeout, err := meter.Int64Counter(
		"dataflow_fixedpoint_timeouts_total",
		metric.WithDescription("number of nested scopes that exceeded their iteration cap"),
	)
	if err != nil {
		return nil, fmt.Errorf("create fixedpoint timeout counter: %w", err)
	}

	return &SchedulerMetrics{
		stepDuration:      stepDuration,
		evalDuration:      evalDuration,
		fixedpointIters:   fixedpointIters,
		stepsTotal:        stepsTotal,
		fixedpointTimeout: fixedpointTimeout,
	}, nil
}

// RecordStep records one completed Step call's wall time.
func (m *SchedulerMetrics) RecordStep(ctx context.Context, seconds float64) {
	m.stepDuration.Record(ctx, seconds)
	m.stepsTotal.Add(ctx, 1)
}

// RecordEval records one operator's eval wall time, labeled by operator
// name and scope so per-operator cost is queryable.
func (m *SchedulerMetrics) RecordEval(ctx context.Context, operatorName string, scope int, seconds float64) {
	m.evalDuration.Record(ctx, seconds, metric.WithAttributes(
		attrString("operator.name", operatorName),
		attrInt("scope", scope),
	))
}

// RecordFixedpoint records how many iterations a nested scope needed to
// converge for the current outer tick.
func (m *SchedulerMetrics) RecordFixedpoint(ctx context.Context, scope, iterations int) {
	m.fixedpointIters.Record(ctx, int64(iterations), metric.WithAttributes(attrInt("scope", scope)))
}

// RecordFixedpointTimeout records that a nested scope exceeded its
// iteration cap without converging.
func (m *SchedulerMetrics) RecordFixedpointTimeout(ctx context.Context, scope int) {
	m.fixedpointTimeout.Add(ctx, 1, metric.WithAttributes(attrInt("scope", scope)))
}
