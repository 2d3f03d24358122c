package dag

import (
	"context"
	"time"

	"github.com/kbukum/kbuild/errors"
	"github.com/kbukum/kbuild/logger"
	"github.com/kbukum/kbuild/observability"
)

// WithTracing wraps a Node with span creation. Each execution creates a
// span named spanName carrying the node name and kind.
func WithTracing(node Node, spanName string) Node {
	return &tracingNode{inner: node, spanName: spanName}
}

type tracingNode struct {
	inner    Node
	spanName string
}

func (n *tracingNode) Name() string { return n.inner.Name() }
func (n *tracingNode) Kind() string { return kindOf(n.inner) }

func (n *tracingNode) Run(ctx context.Context, state *State) (any, error) {
	ctx, span := observability.StartSpan(ctx, n.spanName)
	defer span.End()

	observability.SetSpanAttribute(ctx, observability.AttrStage, n.inner.Name())
	observability.SetSpanAttribute(ctx, observability.AttrStageKind, kindOf(n.inner))
	if op := observability.OperationFromContext(ctx); op != nil {
		observability.SetSpanAttribute(ctx, observability.AttrBuildID, op.BuildID)
	}

	result, err := n.inner.Run(ctx, state)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}

	return result, err
}

// WithMetrics wraps a Node with metric recording: stage count, duration
// and errors, labelled by the node's kind.
func WithMetrics(node Node, metrics *observability.Metrics) Node {
	return &metricsNode{inner: node, metrics: metrics}
}

type metricsNode struct {
	inner   Node
	metrics *observability.Metrics
}

func (n *metricsNode) Name() string { return n.inner.Name() }
func (n *metricsNode) Kind() string { return kindOf(n.inner) }

func (n *metricsNode) Run(ctx context.Context, state *State) (any, error) {
	n.metrics.RecordStageStart(ctx)
	start := time.Now()
	result, err := n.inner.Run(ctx, state)
	duration := time.Since(start)

	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		n.metrics.RecordError(ctx, string(errors.Wrap(err).Code), kindOf(n.inner))
	}
	n.metrics.RecordStage(ctx, kindOf(n.inner), status, duration)

	return result, err
}

// WithLogging wraps a Node with execution logging. The logger picks up the
// build id from the context.
func WithLogging(node Node, log *logger.Logger) Node {
	return &loggingNode{inner: node, log: log}
}

type loggingNode struct {
	inner Node
	log   *logger.Logger
}

func (n *loggingNode) Name() string { return n.inner.Name() }
func (n *loggingNode) Kind() string { return kindOf(n.inner) }

func (n *loggingNode) Run(ctx context.Context, state *State) (any, error) {
	start := time.Now()
	result, err := n.inner.Run(ctx, state)
	duration := time.Since(start)

	fields := logger.MergeWithDuration(logger.Fields(
		logger.FieldStage, n.inner.Name(),
		logger.FieldKind, kindOf(n.inner),
	), duration)

	log := n.log.WithContext(ctx)
	if err != nil {
		fields[logger.FieldStatus] = StatusFailed
		log.Error("stage failed", logger.MergeWithError(fields, err))
	} else {
		fields[logger.FieldStatus] = StatusCompleted
		log.Debug("stage completed", fields)
	}

	return result, err
}
