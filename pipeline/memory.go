package pipeline

import "sort"

// memoryConsumer is anything the Memory runtime can allocate a byte
// budget to: either a Node itself, or one of its registered
// Datastructures.
type memoryConsumer struct {
	id     int64 // token id, used only for deterministic ordering
	weight float64
	min    int64
	max    int64 // 0 means unbounded
	assign func(bytes int64)
}

// AllocateMemory distributes budget bytes across consumers proportionally
// to their declared weight, clamped to each consumer's [min, max] bounds.
// Clamped consumers are pinned at their bound and excluded from further
// rounds; the freed or reclaimed budget is redistributed among the
// remaining consumers by repeating the proportional pass until no
// consumer clamps (a fixed point), or until every consumer is pinned.
// AllocateMemory returns InsufficientMemory if the consumers' minimums
// alone exceed budget.
func AllocateMemory(budget int64, consumers []memoryConsumer) error {
	var minSum int64
	for _, c := range consumers {
		minSum += c.min
	}
	if minSum > budget {
		return newError(InsufficientMemory, "", "consumer minimums sum to %d, budget is %d", minSum, budget)
	}

	// Stable, deterministic processing order.
	ordered := append([]memoryConsumer{}, consumers...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })

	pinned := make([]bool, len(ordered))
	final := make([]int64, len(ordered))

	remainingBudget := budget
	for {
		var freeWeight float64
		var freeBudget int64 = remainingBudget
		activeIdx := []int{}
		for i, c := range ordered {
			if pinned[i] {
				continue
			}
			freeWeight += c.weight
			activeIdx = append(activeIdx, i)
		}
		if len(activeIdx) == 0 {
			break
		}

		clampedAny := false
		for _, i := range activeIdx {
			c := ordered[i]
			var share int64
			if freeWeight > 0 {
				share = int64(float64(freeBudget) * (c.weight / freeWeight))
			}
			if share < c.min {
				share = c.min
			}
			if c.max > 0 && share > c.max {
				share = c.max
			}

			hitsMin := share == c.min && c.weight*float64(freeBudget) < float64(c.min)*freeWeight
			hitsMax := c.max > 0 && share == c.max
			if hitsMin || hitsMax {
				pinned[i] = true
				final[i] = share
				remainingBudget -= share
				clampedAny = true
			}
		}
		if !clampedAny {
			// Fixed point: assign proportional shares to all remaining
			// active consumers from the current remainingBudget.
			assigned := int64(0)
			for j, i := range activeIdx {
				c := ordered[i]
				var share int64
				if j == len(activeIdx)-1 {
					// Last consumer absorbs rounding remainder so the
					// full budget is always accounted for.
					share = remainingBudget - assigned
				} else if freeWeight > 0 {
					share = int64(float64(remainingBudget) * (c.weight / freeWeight))
				}
				final[i] = share
				assigned += share
			}
			break
		}
	}

	for i, c := range ordered {
		c.assign(final[i])
	}
	return nil
}

// AllocateNodeMemory is the Node-level entry point: it gathers every node
// in a phase (and their registered Datastructures, via the NodeMap's
// shared table) as consumers and runs AllocateMemory against budget.
func AllocateNodeMemory(m *NodeMap, phase *Phase, budget int64) error {
	var consumers []memoryConsumer
	for _, id := range phase.NodeIDs() {
		node, ok := m.Lookup(id)
		if !ok {
			continue
		}
		n := node
		consumers = append(consumers, memoryConsumer{
			id:     id,
			weight: n.memoryWeight,
			min:    n.memoryMin,
			max:    n.memoryMax,
			assign: func(bytes int64) {
				n.mu.Lock()
				n.allocatedMem = bytes
				n.mu.Unlock()
			},
		})
	}

	for _, slot := range m.reg.find().datastructures {
		if !slot.usedByPhase(phase) {
			continue
		}
		s := slot
		consumers = append(consumers, memoryConsumer{
			id:     s.sortKey,
			weight: s.memoryWeight,
			min:    s.memoryMin,
			max:    s.memoryMax,
			assign: func(bytes int64) { s.setAllocated(bytes) },
		})
	}

	return AllocateMemory(budget, consumers)
}
