package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one traced build-level operation (build, clean, run).
type Operation struct {
	Name      string
	BuildID   string
	Project   string
	StartTime time.Time
	Metrics   *Metrics
}

// NewOperation creates an operation. If metrics is nil, metric recording
// is skipped.
func NewOperation(name, buildID, project string, metrics *Metrics) *Operation {
	return &Operation{
		Name:      name,
		BuildID:   buildID,
		Project:   project,
		StartTime: time.Now(),
		Metrics:   metrics,
	}
}

type operationKey struct{}

// WithOperation stores op in the context.
func WithOperation(ctx context.Context, op *Operation) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFromContext returns the operation in ctx, or nil.
func OperationFromContext(ctx context.Context) *Operation {
	if op, ok := ctx.Value(operationKey{}).(*Operation); ok {
		return op
	}
	return nil
}

// Start opens the operation span and stores the operation in the context.
func (op *Operation) Start(ctx context.Context, spanName string) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, spanName)
	span.SetAttributes(
		attribute.String(AttrBuildID, op.BuildID),
		attribute.String(AttrProject, op.Project),
	)
	return WithOperation(ctx, op), span
}

// End closes the span and records the build metric.
func (op *Operation) End(ctx context.Context, span trace.Span, status string, err error) {
	duration := time.Since(op.StartTime)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	if op.Metrics != nil {
		op.Metrics.RecordBuild(ctx, op.Project, status, duration)
	}
}

// Duration returns the elapsed time since the operation started.
func (op *Operation) Duration() time.Duration {
	return time.Since(op.StartTime)
}
