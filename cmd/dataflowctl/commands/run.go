package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/arclight-data/dataflow/internal/demo"
	"github.com/arclight-data/dataflow/pkg/config"
	"github.com/arclight-data/dataflow/pkg/observability"
	"github.com/arclight-data/dataflow/pkg/zset"
)

const (
	runCmdUse   = "run"
	runCmdShort = "Build and step a worked incremental dataflow circuit"

	demoTransitiveClosure = "transitive-closure"
	demoLabelPropagation  = "label-propagation"
	demoIncrementalJoin   = "incremental-join"
)

// ErrUnknownDemo is returned when --demo (or demo.name in config) names a
// scenario this binary does not implement.
var ErrUnknownDemo = errors.New("dataflowctl: unknown demo")

// NewRunCommand creates the run subcommand.
func NewRunCommand() *cobra.Command {
	var (
		configPath string
		demoName   string
		steps      int
	)

	cmd := &cobra.Command{
		Use:   runCmdUse,
		Short: runCmdShort,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, configPath, demoName, steps)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a dataflow.yaml config file")
	cmd.Flags().StringVar(&demoName, "demo", "", "override the configured demo (transitive-closure|label-propagation|incremental-join)")
	cmd.Flags().IntVar(&steps, "steps", 0, "override the configured number of outer ticks to run")

	return cmd
}

func runDemo(cmd *cobra.Command, configPath, demoNameFlag string, stepsFlag int) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if demoNameFlag != "" {
		cfg.Demo.Name = demoNameFlag
	}

	if stepsFlag > 0 {
		cfg.Demo.Steps = stepsFlag
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceName = "dataflowctl"
	obsCfg.Mode = observability.ModeCLI
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	obsCfg.PrometheusMetrics = cfg.Observability.MetricsOn
	obsCfg.LogJSON = cfg.Observability.LogJSON

	if level, levelErr := observability.ParseLogLevel(cfg.Observability.LogLevel); levelErr == nil {
		obsCfg.LogLevel = level
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if shutdownErr := providers.Shutdown(shutdownCtx); shutdownErr != nil {
			fmt.Fprintf(os.Stderr, "observability shutdown: %v\n", shutdownErr)
		}
	}()

	metrics, err := observability.NewSchedulerMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("init scheduler metrics: %w", err)
	}

	ctx := context.Background()
	providers.Logger.DebugContext(ctx, "building circuit", "demo", cfg.Demo.Name, "steps", cfg.Demo.Steps)

	switch cfg.Demo.Name {
	case demoTransitiveClosure:
		return runTransitiveClosure(cmd, ctx, providers, metrics, cfg.Demo.Steps, cfg.Scheduler.MaxFixedpointIterations)
	case demoLabelPropagation:
		return runLabelPropagation(cmd, ctx, providers, metrics, cfg.Demo.Steps, cfg.Scheduler.MaxFixedpointIterations)
	case demoIncrementalJoin:
		return runIncrementalJoin(cmd, ctx, providers, metrics, cfg.Demo.Steps, cfg.Trace.CompactionFactor)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDemo, cfg.Demo.Name)
	}
}

func runTransitiveClosure(
	cmd *cobra.Command, ctx context.Context, providers observability.Providers, metrics *observability.SchedulerMetrics, steps, maxIterations int,
) error {
	batches := [][]demo.Edge{
		{{From: 1, To: 2}},
		{{From: 2, To: 3}},
		{{From: 1, To: 3}},
		{{From: 3, To: 1}},
	}

	tc := demo.NewTransitiveClosure(maxIterations, batches)

	for i := 0; i < steps; i++ {
		stepCtx, span := providers.Tracer.Start(ctx, "dataflow.step")
		start := time.Now()

		result, err := tc.Step()

		metrics.RecordStep(stepCtx, time.Since(start).Seconds())
		span.End()

		if err != nil {
			observability.WithOperator(providers.Logger, "reachability", 0).ErrorContext(stepCtx, "step failed", "error", err)
			return fmt.Errorf("step %d: %w", i+1, err)
		}

		renderEdges(cmd, i+1, result)
	}

	return nil
}

func runLabelPropagation(
	cmd *cobra.Command, ctx context.Context, providers observability.Providers, metrics *observability.SchedulerMetrics, steps, maxIterations int,
) error {
	edges := []demo.Edge{
		{From: 1, To: 2},
		{From: 1, To: 3},
		{From: 2, To: 4},
		{From: 3, To: 4},
	}
	seed := demo.Label{Node: 1, Origin: 0}

	lp := demo.NewLabelPropagation(maxIterations, edges, seed)

	for i := 0; i < steps; i++ {
		stepCtx, span := providers.Tracer.Start(ctx, "dataflow.step")
		start := time.Now()

		result, err := lp.Step()

		metrics.RecordStep(stepCtx, time.Since(start).Seconds())
		span.End()

		if err != nil {
			observability.WithOperator(providers.Logger, "propagate", 0).ErrorContext(stepCtx, "step failed", "error", err)
			return fmt.Errorf("step %d: %w", i+1, err)
		}

		renderLabels(cmd, i+1, result)
	}

	return nil
}

func runIncrementalJoin(
	cmd *cobra.Command, ctx context.Context, providers observability.Providers, metrics *observability.SchedulerMetrics, steps, compactionFactor int,
) error {
	batches := [][]demo.Edge{
		{{From: 1, To: 2}, {From: 2, To: 3}},
		{{From: 3, To: 4}},
		{{From: 2, To: 5}},
		{{From: 5, To: 1}},
	}

	paths, err := demo.NewTwoHopPaths(compactionFactor)
	if err != nil {
		return fmt.Errorf("build circuit: %w", err)
	}

	for i := 0; i < steps; i++ {
		if i < len(batches) {
			paths.Push(batches[i])
		}

		stepCtx, span := providers.Tracer.Start(ctx, "dataflow.step")
		start := time.Now()

		result, err := paths.Step()

		metrics.RecordStep(stepCtx, time.Since(start).Seconds())
		span.End()

		if err != nil {
			observability.WithOperator(providers.Logger, "two-hop", 0).ErrorContext(stepCtx, "step failed", "error", err)
			return fmt.Errorf("step %d: %w", i+1, err)
		}

		renderEdges(cmd, i+1, result)
	}

	return nil
}

func renderEdges(cmd *cobra.Command, tick int, z *zset.Set[demo.Edge]) {
	bold := color.New(color.FgCyan, color.Bold)
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s rows)\n", bold.Sprintf("step %d", tick), humanize.Comma(int64(z.Len())))

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"from", "to", "weight"})

	z.ForEach(func(e demo.Edge, w zset.Weight) {
		t.AppendRow(table.Row{e.From, e.To, weightCell(w)})
	})

	t.Render()
}

func renderLabels(cmd *cobra.Command, tick int, z *zset.Set[demo.Label]) {
	bold := color.New(color.FgCyan, color.Bold)
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s rows)\n", bold.Sprintf("step %d", tick), humanize.Comma(int64(z.Len())))

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"node", "origin", "weight"})

	z.ForEach(func(l demo.Label, w zset.Weight) {
		t.AppendRow(table.Row{l.Node, l.Origin, weightCell(w)})
	})

	t.Render()
}

func weightCell(w zset.Weight) string {
	switch {
	case w > 0:
		return color.GreenString("%+d", w)
	case w < 0:
		return color.RedString("%+d", w)
	default:
		return "0"
	}
}
