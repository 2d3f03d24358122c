// Package dag executes a graph of nodes in dependency order.
//
// BuildLevels groups nodes into levels with Kahn's algorithm; every node in
// a level depends only on nodes in earlier levels. Levels are sorted by
// name so execution order is reproducible.
//
// The Engine runs one level at a time. With MaxParallel at most 1 nodes run
// strictly one after another; higher values run up to that many nodes of a
// level concurrently. When a node fails no further node is started: nodes
// still pending are recorded as skipped and the engine returns after the
// running ones finish.
package dag
