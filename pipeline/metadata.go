package pipeline

import "reflect"

// Forward propagates a metadata value from src along the item-flow graph
// (the push/pull relations) to dst, to be observed by dst's later hooks
// via Fetch. Forward must be called during src's Propagate hook; calling
// it at any other time returns a LifecycleViolation.
//
// explicit controls precedence when dst already has a forwarded value
// under name: an explicit Forward always overrides a prior implicit one
// and a prior explicit one (last explicit writer wins); an implicit
// Forward (explicit=false) never overrides an existing explicit value.
func Forward(src, dst *Node, name string, value any, explicit bool) error {
	src.mu.Lock()
	srcState := src.state
	src.mu.Unlock()
	if srcState != InPropagate {
		return newError(LifecycleViolation, src.name, "Forward(%q): must be called during Propagate, node is %s", name, srcState)
	}

	dst.mu.Lock()
	defer dst.mu.Unlock()
	existing, ok := dst.forwarded[name]
	if ok && existing.sticky && !explicit {
		return nil
	}
	dst.forwarded[name] = forwardedValue{value: value, sticky: explicit}
	return nil
}

// CanFetch reports whether n currently has a forwarded value under name.
func CanFetch(n *Node, name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.forwarded[name]
	return ok
}

// Fetch reads a forwarded metadata value into dest (a pointer). Returns a
// LifecycleViolation if no value under name was ever forwarded to n, or a
// TypeMismatch if the stored value's type differs from *dest's type.
func Fetch(n *Node, name string, dest any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	fv, ok := n.forwarded[name]
	if !ok {
		return newError(LifecycleViolation, n.name, "Fetch(%q): nothing was forwarded to this node", name)
	}

	destVal := reflect.ValueOf(dest)
	if destVal.Kind() != reflect.Ptr {
		return newError(TypeMismatch, n.name, "Fetch(%q): dest must be a pointer, got %s", name, destVal.Kind())
	}
	storedVal := reflect.ValueOf(fv.value)
	if storedVal.Type() != destVal.Elem().Type() {
		return newError(TypeMismatch, n.name, "Fetch(%q): stored %s, dest wants %s", name, storedVal.Type(), destVal.Elem().Type())
	}
	destVal.Elem().Set(storedVal)
	return nil
}

// forwardAlongItemFlow runs after every node in a phase has completed its
// Propagate hook: it walks every push and pull relation of the map in
// item-flow direction (push edges as declared, pull edges reversed) and
// copies the upstream node's forwarded values to the downstream node, so
// metadata set earlier in the pipeline reaches later nodes and phases
// without every intermediate node re-forwarding it by hand. A downstream
// explicit value is never replaced, and an upstream implicit value does
// not replace a value the downstream node already holds.
func forwardAlongItemFlow(m *NodeMap) error {
	push, pull, _ := m.GetRelations()
	flows := append([]Relation{}, push...)
	for _, r := range pull {
		// A pull edge From->To means From pulls from To: items flow To->From.
		flows = append(flows, Relation{Kind: r.Kind, From: r.To, To: r.From, Buffered: r.Buffered})
	}
	for _, r := range flows {
		fromNode, ok := m.Lookup(r.From.id)
		if !ok {
			continue
		}
		toNode, ok := m.Lookup(r.To.id)
		if !ok {
			continue
		}
		fromNode.mu.Lock()
		carried := make(map[string]forwardedValue, len(fromNode.forwarded))
		for k, v := range fromNode.forwarded {
			carried[k] = v
		}
		fromNode.mu.Unlock()

		toNode.mu.Lock()
		for k, v := range carried {
			existing, has := toNode.forwarded[k]
			if has && existing.sticky {
				continue
			}
			if has && !v.sticky {
				continue
			}
			toNode.forwarded[k] = v
		}
		toNode.mu.Unlock()
	}
	return nil
}
