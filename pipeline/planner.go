package pipeline

import "sort"

// Phase is one partition of the dataflow graph: a set of nodes connected
// by non-buffered actor edges, to be driven through the lifecycle as a
// unit. Phases are ordered so that across every buffered edge the
// producer's phase comes first, and across every depends_on edge the
// depended-on node's phase comes first.
type Phase struct {
	Index     int
	nodeIDs   []int64 // sorted ascending, deterministic
	order     []int64 // item-flow topological order within the phase
	initiator int64   // token id of the phase's unique actor-graph source
}

// NodeIDs returns the token ids of every node in this phase, ascending.
func (p *Phase) NodeIDs() []int64 { return p.nodeIDs }

// Order returns the token ids of every node in this phase, topologically
// sorted over the item-flow edges (push ∪ reverse(pull)) that remain
// inside the phase, ties broken by ascending token id. prepare, propagate,
// and end run nodes in this order; begin runs them in reverse.
func (p *Phase) Order() []int64 { return p.order }

// Initiator returns the token id of the node that drives this phase's Go
// pass — the unique source of the phase's actor subgraph.
func (p *Phase) Initiator() int64 { return p.initiator }

// Plan computes the phase partition and ordering for a NodeMap's current
// relations. Nodes connected by non-buffered push/pull ("actor") edges
// are grouped into the same phase via a union-find over those edges.
// Buffered push/pull edges and all depends_on edges become inter-phase
// ordering constraints. Plan returns a CyclicPhases error if those
// constraints contain a cycle, and a NoOrMultipleInitiators error if any
// phase's actor subgraph lacks a unique source node.
func Plan(m *NodeMap) ([]*Phase, error) {
	push, pull, depends := m.GetRelations()

	allIDs := map[int64]bool{}
	for _, n := range m.Nodes() {
		allIDs[n.Token().id] = true
	}

	uf := newUnionFind(allIDs)

	// actorEdges holds only the non-buffered push/pull edges: these are
	// the ones that keep two nodes in the same phase.
	type actorEdge struct{ from, to int64 }
	var actorEdges []actorEdge
	// itemAdj is the item-flow graph (push ∪ reverse(pull)) restricted to
	// non-buffered actor edges: a push edge keeps its declared direction
	// (producer -> consumer), a pull edge is reversed, since "from pulls
	// from to" means to is the producer and from is the consumer.
	itemAdj := map[int64][]int64{}
	for _, r := range push {
		if !r.Buffered {
			uf.union(r.From.id, r.To.id)
			actorEdges = append(actorEdges, actorEdge{r.From.id, r.To.id})
			itemAdj[r.From.id] = append(itemAdj[r.From.id], r.To.id)
		}
	}
	for _, r := range pull {
		if !r.Buffered {
			uf.union(r.From.id, r.To.id)
			actorEdges = append(actorEdges, actorEdge{r.From.id, r.To.id})
			itemAdj[r.To.id] = append(itemAdj[r.To.id], r.From.id)
		}
	}

	// Group node ids by their union-find root into phase membership.
	groups := map[int64][]int64{}
	for id := range allIDs {
		root := uf.find(id)
		groups[root] = append(groups[root], id)
	}

	// Assign each root a deterministic phase index by the minimum token
	// id in its group, so planning is reproducible across runs.
	roots := make([]int64, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool {
		return minOf(groups[roots[i]]) < minOf(groups[roots[j]])
	})

	phaseOf := map[int64]int{} // node id -> phase index
	phases := make([]*Phase, len(roots))
	for idx, root := range roots {
		ids := append([]int64{}, groups[root]...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		phases[idx] = &Phase{Index: idx, nodeIDs: ids}
		for _, id := range ids {
			phaseOf[id] = idx
		}
	}

	// Determine each phase's initiator: the unique source of its actor
	// subgraph (a node with no incoming non-buffered actor edge from
	// within the same phase).
	hasIncoming := map[int64]bool{}
	for _, e := range actorEdges {
		hasIncoming[e.to] = true
	}
	for _, ph := range phases {
		var sources []int64
		for _, id := range ph.nodeIDs {
			if !hasIncoming[id] {
				sources = append(sources, id)
			}
		}
		if len(sources) != 1 {
			return nil, newError(NoOrMultipleInitiators, "",
				"phase %d has %d candidate initiators, want exactly 1", ph.Index, len(sources))
		}
		ph.initiator = sources[0]
	}

	// Order each phase's nodes topologically over its internal item-flow
	// edges, so the executor can run prepare/propagate/end in that order
	// and begin in its reverse.
	for _, ph := range phases {
		order, err := itemFlowOrder(ph.nodeIDs, itemAdj)
		if err != nil {
			return nil, err
		}
		ph.order = order
	}

	// Build the inter-phase ordering graph from buffered actor edges and
	// depends_on edges, each pointing from the producer's (or the
	// depended-on node's) phase to the consumer's (or the dependent
	// node's) phase, then topologically sort phases via Kahn's
	// algorithm with ascending-phase-index tie-breaking for determinism.
	numPhases := len(phases)
	adj := make([][]int, numPhases)
	inDegree := make([]int, numPhases)
	seenEdge := map[[2]int]bool{}

	addPhaseEdge := func(fromID, toID int64) {
		fp, tp := phaseOf[fromID], phaseOf[toID]
		if fp == tp {
			return
		}
		key := [2]int{fp, tp}
		if seenEdge[key] {
			return
		}
		seenEdge[key] = true
		adj[fp] = append(adj[fp], tp)
		inDegree[tp]++
	}

	for _, r := range push {
		if r.Buffered {
			addPhaseEdge(r.From.id, r.To.id)
		}
	}
	for _, r := range pull {
		if r.Buffered {
			addPhaseEdge(r.To.id, r.From.id)
		}
	}
	for _, r := range depends {
		addPhaseEdge(r.To.id, r.From.id)
	}

	order, err := kahnOrder(adj, inDegree, numPhases)
	if err != nil {
		return nil, err
	}

	ordered := make([]*Phase, numPhases)
	for newIdx, oldIdx := range order {
		phases[oldIdx].Index = newIdx
		ordered[newIdx] = phases[oldIdx]
	}
	return ordered, nil
}

// kahnOrder runs Kahn's algorithm over a phase-ordering graph, breaking
// ties by ascending node index (which already reflects ascending minimum
// token id) so the result is fully deterministic.
func kahnOrder(adj [][]int, inDegree []int, n int) ([]int, error) {
	remaining := append([]int{}, inDegree...)
	var ready []int
	for i := 0; i < n; i++ {
		if remaining[i] == 0 {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)

	var order []int
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, to := range adj[next] {
			remaining[to]--
			if remaining[to] == 0 {
				ready = append(ready, to)
			}
		}
	}

	if len(order) != n {
		return nil, newError(CyclicPhases, "", "phase ordering graph has a cycle among %d unresolved phases", n-len(order))
	}
	return order, nil
}

// itemFlowOrder computes the topological order of ids over adj (the
// item-flow graph restricted to this phase), breaking ties by ascending
// token id so planning is deterministic. Returns a CyclicPhases error if
// adj contains a cycle among ids — the item-flow graph must be a DAG.
func itemFlowOrder(ids []int64, adj map[int64][]int64) ([]int64, error) {
	inDegree := make(map[int64]int, len(ids))
	for _, id := range ids {
		inDegree[id] = 0
	}
	for _, id := range ids {
		for _, to := range adj[id] {
			inDegree[to]++
		}
	}

	var ready []int64
	for _, id := range ids {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	order := make([]int64, 0, len(ids))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, to := range adj[next] {
			inDegree[to]--
			if inDegree[to] == 0 {
				ready = append(ready, to)
			}
		}
	}

	if len(order) != len(ids) {
		return nil, newError(CyclicPhases, "",
			"item-flow graph within a phase has a cycle among %d unresolved nodes", len(ids)-len(order))
	}
	return order, nil
}

func minOf(ids []int64) int64 {
	m := ids[0]
	for _, id := range ids[1:] {
		if id < m {
			m = id
		}
	}
	return m
}

// unionFind is a plain union-find over a fixed, known key set, used by
// Plan to group nodes into phases. It is independent of the NodeMap
// registry's own union-find (which merges whole maps, not individual
// nodes into phases).
type unionFind struct {
	parent map[int64]int64
}

func newUnionFind(ids map[int64]bool) *unionFind {
	uf := &unionFind{parent: make(map[int64]int64, len(ids))}
	for id := range ids {
		uf.parent[id] = id
	}
	return uf
}

func (u *unionFind) find(id int64) int64 {
	root := id
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[id] != root {
		next := u.parent[id]
		u.parent[id] = root
		id = next
	}
	return root
}

func (u *unionFind) union(a, b int64) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// Deterministic merge direction: smaller id becomes root.
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}
