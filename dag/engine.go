package dag

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/kbuild/errors"
)

// Engine executes a graph in dependency order.
type Engine struct {
	// MaxParallel limits concurrent nodes per level. Values below 2 run
	// nodes one at a time.
	MaxParallel int
}

// Execute runs the graph level by level and stops starting nodes after
// the first failure. Node failures are reported in the Result; the error
// return is reserved for an invalid graph or a canceled context.
func (e *Engine) Execute(ctx context.Context, g *Graph, state *State) (*Result, error) {
	start := time.Now()

	levels, err := BuildLevels(g)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = NewState()
	}

	run := &execution{
		graph:  g,
		state:  state,
		result: &Result{NodeResults: make(map[string]NodeResult, len(g.Nodes))},
	}

	for _, level := range levels {
		if run.failed.Load() || ctx.Err() != nil {
			run.skip(level)
			continue
		}
		if e.concurrency(len(level)) <= 1 {
			run.sequential(ctx, level)
		} else {
			run.parallel(ctx, level, e.concurrency(len(level)))
		}
	}

	run.result.Duration = time.Since(start)
	if err := ctx.Err(); err != nil {
		return run.result, errors.Canceled("build", err)
	}
	return run.result, nil
}

func (e *Engine) concurrency(levelSize int) int {
	if e.MaxParallel <= 1 {
		return 1
	}
	if e.MaxParallel > levelSize {
		return levelSize
	}
	return e.MaxParallel
}

// execution is the mutable state of one Execute call.
type execution struct {
	graph  *Graph
	state  *State
	failed atomic.Bool

	mu     sync.Mutex
	result *Result
}

func (x *execution) sequential(ctx context.Context, names []string) {
	for i, name := range names {
		if x.failed.Load() || ctx.Err() != nil {
			x.skip(names[i:])
			return
		}
		x.record(x.runNode(ctx, x.graph.Nodes[name]))
	}
}

// parallel runs names with at most limit in flight. A node that has not
// started when another fails is skipped; nodes already running finish.
func (x *execution) parallel(ctx context.Context, names []string, limit int) {
	var eg errgroup.Group
	eg.SetLimit(limit)
	for _, name := range names {
		node := x.graph.Nodes[name]
		eg.Go(func() error {
			if x.failed.Load() || ctx.Err() != nil {
				x.skip([]string{node.Name()})
				return nil
			}
			x.record(x.runNode(ctx, node))
			return nil
		})
	}
	_ = eg.Wait()
}

func (x *execution) runNode(ctx context.Context, node Node) NodeResult {
	start := time.Now()
	output, err := node.Run(ctx, x.state)
	duration := time.Since(start)

	if err != nil {
		x.failed.Store(true)
		return NodeResult{
			Name:     node.Name(),
			Status:   StatusFailed,
			Duration: duration,
			Output:   output,
			Error:    err,
		}
	}

	return NodeResult{
		Name:     node.Name(),
		Status:   StatusCompleted,
		Duration: duration,
		Output:   output,
	}
}

func (x *execution) record(nr NodeResult) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.result.NodeResults[nr.Name] = nr
	x.result.Order = append(x.result.Order, nr.Name)
}

func (x *execution) skip(names []string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, name := range names {
		x.result.NodeResults[name] = NodeResult{Name: name, Status: StatusSkipped}
	}
}
