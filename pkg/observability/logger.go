package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID  = "trace_id"
	attrSpanID   = "span_id"
	attrService  = "service"
	attrEnv      = "env"
	attrMode     = "mode"
	attrOperator = "operator"
	attrScope    = "scope"
)

// NewLogger builds the host logger described by cfg, writing to w.
// Every record carries the service identity, and records emitted under
// an active span additionally carry its trace and span ids, so a
// scheduler log line and the step span it ran under cross-reference in
// the backend.
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var sink slog.Handler
	if cfg.LogJSON {
		sink = slog.NewJSONHandler(w, opts)
	} else {
		sink = slog.NewTextHandler(w, opts)
	}

	// Identity attrs go on the sink itself, below the span-context
	// decoration, so they stay top-level even when callers add groups.
	identity := []slog.Attr{
		slog.String(attrService, cfg.ServiceName),
		slog.String(attrMode, string(cfg.Mode)),
	}
	if cfg.Environment != "" {
		identity = append(identity, slog.String(attrEnv, cfg.Environment))
	}

	return slog.New(spanContextHandler{next: sink.WithAttrs(identity)})
}

// WithOperator returns a logger whose records carry an operator's name
// and scope, the attributes step-boundary and eval-failure messages are
// logged with.
func WithOperator(logger *slog.Logger, operatorName string, scope int) *slog.Logger {
	return logger.With(attrOperator, operatorName, attrScope, scope)
}

// spanContextHandler stamps each record with the calling context's span
// ids before handing it to the next handler. Records logged outside any
// span pass through untouched.
type spanContextHandler struct {
	next slog.Handler
}

func (h spanContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h spanContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	return h.next.Handle(ctx, record)
}

func (h spanContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return spanContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h spanContextHandler) WithGroup(name string) slog.Handler {
	return spanContextHandler{next: h.next.WithGroup(name)}
}
