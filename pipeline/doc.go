// Package pipeline implements an out-of-core dataflow runtime in the keyvi
// pipelining style: a multi-graph of push/pull nodes sharing a token
// registry, partitioned into phases by a planner, driven through a strict
// lifecycle state machine, and budgeted by a proportional memory runtime.
//
// A Node declares push destinations, pull sources, and dependency edges
// against a shared NodeMap. Three relations are derived from those edges:
// the actor graph (who calls whom), the item-flow graph (direction items
// travel), and the dependency graph (explicit ordering constraints). The
// Planner groups nodes connected by non-buffered actor edges into phases,
// orders those phases topologically, and the Executor drives each phase
// through prepare → propagate → begin → go → end → evacuate.
//
// Within a phase, the Memory runtime distributes an available budget across
// nodes and their registered Datastructures proportionally to declared
// weights, clamped to per-consumer [min, max] bounds. Metadata flows
// side-band along the item-flow graph via Forward/Fetch, with
// explicit-overrides-implicit semantics. Progress is tracked per node via a
// declared step budget and a proxy indicator that forwards to a
// phase-level one.
//
// This package implements the framework only: concrete node behavior
// (sources, sinks, sorters, file I/O), the progress indicator's rendering,
// and on-disk formats are supplied by the enclosing application.
//
// The main entry points are [NewNodeMap] to create a registry, [NewNode] to
// construct nodes against it, [Plan] to compute the phase partition, and
// [Execute] to run the planned phases to completion.
package pipeline
