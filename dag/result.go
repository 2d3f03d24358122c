package dag

import "time"

// Node statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	// StatusSkipped marks a node never started because an earlier node
	// failed or the context was canceled.
	StatusSkipped = "skipped"
)

// Result holds the outcome of a graph execution.
type Result struct {
	NodeResults map[string]NodeResult
	// Order lists the nodes that ran, in the order they finished.
	Order    []string
	Duration time.Duration
}

// NodeResult holds the outcome of a single node execution.
type NodeResult struct {
	Name     string
	Status   string
	Duration time.Duration
	Output   any
	Error    error
}

// Failed reports whether any node failed.
func (r *Result) Failed() bool {
	return r.FirstError() != nil
}

// FirstError returns the error of the first node that failed, in
// finishing order.
func (r *Result) FirstError() error {
	for _, name := range r.Order {
		if nr := r.NodeResults[name]; nr.Status == StatusFailed {
			return nr.Error
		}
	}
	return nil
}
