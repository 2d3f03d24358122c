package build

import (
	"context"

	"github.com/kbukum/kbuild/dag"
	"github.com/kbukum/kbuild/toolchain"
)

// stageNode runs one toolchain stage as a dag node.
type stageNode struct {
	stage toolchain.Stage
	tc    *toolchain.Toolchain
}

func (n *stageNode) Name() string { return n.stage.Name }
func (n *stageNode) Kind() string { return string(n.stage.Kind) }

// Run returns the StageResult as the node output. A stage that did not
// succeed fails the node, so the engine stops scheduling.
func (n *stageNode) Run(ctx context.Context, _ *dag.State) (any, error) {
	res, err := n.tc.Execute(ctx, n.stage)
	if err != nil {
		return res, err
	}
	if !res.Success {
		return res, res.Err
	}
	return res, nil
}

// graph converts a plan into a dag graph, wrapping each node with wrap.
func graph(plan *Plan, tc *toolchain.Toolchain, wrap func(dag.Node) dag.Node) (*dag.Graph, error) {
	g := dag.NewGraph()
	for _, stage := range plan.Stages {
		if err := g.Add(wrap(&stageNode{stage: stage, tc: tc})); err != nil {
			return nil, err
		}
	}
	for _, stage := range plan.Stages {
		for _, dep := range plan.Deps[stage.Name] {
			g.Depend(dep, stage.Name)
		}
	}
	return g, nil
}
