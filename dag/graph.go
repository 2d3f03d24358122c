package dag

import (
	"fmt"
	"sort"

	"github.com/kbukum/kbuild/errors"
)

// Graph declares nodes and edges (dependency relationships).
type Graph struct {
	Nodes map[string]Node
	Edges []Edge
}

// Edge represents a dependency: To depends on From.
type Edge struct {
	From string
	To   string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]Node)}
}

// Add registers a node. Names must be unique.
func (g *Graph) Add(node Node) error {
	if _, exists := g.Nodes[node.Name()]; exists {
		return errors.Plan(fmt.Sprintf("dag: duplicate node %q", node.Name())).
			WithDetail("node", node.Name())
	}
	g.Nodes[node.Name()] = node
	return nil
}

// Depend records that to depends on from.
func (g *Graph) Depend(from, to string) {
	g.Edges = append(g.Edges, Edge{From: from, To: to})
}

// BuildLevels uses Kahn's algorithm to group nodes by dependency level.
// Nodes within the same level are independent of each other; each level
// is sorted by name. Returns a PLAN_ERROR if an edge names an unknown node
// or a cycle is detected.
func BuildLevels(g *Graph) ([][]string, error) {
	inDegree := make(map[string]int)
	dependents := make(map[string][]string) // from -> [to...]

	for name := range g.Nodes {
		inDegree[name] = 0
	}

	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.From]; !ok {
			return nil, errors.Plan(fmt.Sprintf("dag: edge references unknown node %q", e.From))
		}
		if _, ok := g.Nodes[e.To]; !ok {
			return nil, errors.Plan(fmt.Sprintf("dag: edge references unknown node %q", e.To))
		}
		inDegree[e.To]++
		dependents[e.From] = append(dependents[e.From], e.To)
	}

	var queue []string
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}

	var levels [][]string
	visited := 0

	for len(queue) > 0 {
		sort.Strings(queue)
		levels = append(levels, queue)
		visited += len(queue)

		var next []string
		for _, name := range queue {
			for _, dep := range dependents[name] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		queue = next
	}

	if visited != len(g.Nodes) {
		return nil, errors.Plan(fmt.Sprintf("dag: cycle detected, processed %d of %d nodes", visited, len(g.Nodes)))
	}

	return levels, nil
}
