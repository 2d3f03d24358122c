package dag

import (
	"context"
)

// Node is the execution unit in a DAG.
type Node interface {
	Name() string
	Run(ctx context.Context, state *State) (any, error)
}

// Kinded is implemented by nodes that belong to a category, used to label
// metrics without one series per node.
type Kinded interface {
	Kind() string
}

// Func adapts a function into a Node.
func Func(name string, fn func(ctx context.Context, state *State) (any, error)) Node {
	return &funcNode{name: name, fn: fn}
}

type funcNode struct {
	name string
	fn   func(ctx context.Context, state *State) (any, error)
}

func (n *funcNode) Name() string { return n.name }

func (n *funcNode) Run(ctx context.Context, state *State) (any, error) {
	return n.fn(ctx, state)
}

// kindOf returns the node's kind, or "node".
func kindOf(n Node) string {
	if k, ok := n.(Kinded); ok {
		return k.Kind()
	}
	return "node"
}
