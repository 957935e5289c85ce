package pipeline

import (
	"reflect"
	"sync"
)

// datastructureSlot is the type-erased, per-name shared storage box held
// in a registry's datastructures table. It is created lazily on first
// Register call and merged across NodeMap.Link calls that happen to
// declare the same name in both maps.
type datastructureSlot struct {
	mu sync.Mutex

	name string
	typ  reflect.Type
	val  any

	memoryWeight float64
	memoryMin    int64
	memoryMax    int64
	allocated    int64

	// sortKey gives the slot a stable position in memory-consumer
	// ordering; it is set to the token id of whichever node registered
	// it first.
	sortKey int64

	// phases records which phase indices have consumers of this slot,
	// set by RestrictDatastructureToPhases (if empty, the slot is
	// treated as used by every phase).
	phases map[int]bool
}

func (s *datastructureSlot) usedByPhase(p *Phase) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.phases) == 0 {
		return true
	}
	return s.phases[p.Index]
}

func (s *datastructureSlot) setAllocated(bytes int64) {
	s.mu.Lock()
	s.allocated = bytes
	s.mu.Unlock()
}

// merge folds another slot registered under the same name (from a map
// being absorbed via NodeMap.Link) into s. The merge keeps s's existing
// value if one is set; the weight/bound fields take the larger max and
// smaller sortKey, matching "first registrant wins identity, maximal
// demand wins capacity" semantics.
func (s *datastructureSlot) merge(other *datastructureSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()

	if s.val == nil {
		s.val = other.val
		s.typ = other.typ
	}
	if other.sortKey < s.sortKey {
		s.sortKey = other.sortKey
	}
	if other.memoryMax == 0 || (s.memoryMax != 0 && other.memoryMax > s.memoryMax) {
		s.memoryMax = other.memoryMax
	}
	if other.memoryMin > s.memoryMin {
		s.memoryMin = other.memoryMin
	}
	if other.memoryWeight > s.memoryWeight {
		s.memoryWeight = other.memoryWeight
	}
	for p := range other.phases {
		if s.phases == nil {
			s.phases = map[int]bool{}
		}
		s.phases[p] = true
	}
}

// RegisterDatastructure declares a named, shared datastructure in owner's
// NodeMap with an initial value, so that later Get/Set calls (from any
// node sharing the map) can find it by name. Registering an already
// registered name is a no-op that leaves the existing value untouched.
func RegisterDatastructure(owner *Node, name string, initial any) {
	root := owner.Token().reg.find()
	root.mu.Lock()
	defer root.mu.Unlock()

	if _, ok := root.datastructures[name]; ok {
		return
	}
	root.datastructures[name] = &datastructureSlot{
		name:         name,
		typ:          reflect.TypeOf(initial),
		val:          initial,
		memoryWeight: 1.0,
		sortKey:      owner.Token().id,
	}
}

// SetDatastructureMemoryBounds declares the [min, max] byte bounds and
// relative weight the Memory runtime should use when allocating budget to
// the named datastructure. Calling this for an unregistered name returns
// an UnregisteredDatastructure error.
func SetDatastructureMemoryBounds(m *NodeMap, name string, weight float64, min, max int64) error {
	root := m.reg.find()
	root.mu.Lock()
	defer root.mu.Unlock()
	slot, ok := root.datastructures[name]
	if !ok {
		return newError(UnregisteredDatastructure, "", "SetDatastructureMemoryBounds: %q was never registered", name)
	}
	slot.mu.Lock()
	slot.memoryWeight = weight
	slot.memoryMin = min
	slot.memoryMax = max
	slot.mu.Unlock()
	return nil
}

// SetDatastructure overwrites the named datastructure's value. Returns
// UnregisteredDatastructure if name was never registered, or TypeMismatch
// if value's type differs from the type it was registered with.
func SetDatastructure(m *NodeMap, name string, value any) error {
	root := m.reg.find()
	root.mu.Lock()
	slot, ok := root.datastructures[name]
	root.mu.Unlock()
	if !ok {
		return newError(UnregisteredDatastructure, "", "SetDatastructure: %q was never registered", name)
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	newTyp := reflect.TypeOf(value)
	if slot.typ != nil && newTyp != nil && slot.typ != newTyp {
		return newError(TypeMismatch, "", "SetDatastructure: %q holds %s, got %s", name, slot.typ, newTyp)
	}
	slot.val = value
	if slot.typ == nil {
		slot.typ = newTyp
	}
	return nil
}

// GetDatastructure reads the named datastructure's current value into
// dest (a pointer). Returns UnregisteredDatastructure if name was never
// registered, or TypeMismatch if the stored value's type differs from
// *dest's type.
func GetDatastructure(m *NodeMap, name string, dest any) error {
	root := m.reg.find()
	root.mu.Lock()
	slot, ok := root.datastructures[name]
	root.mu.Unlock()
	if !ok {
		return newError(UnregisteredDatastructure, "", "GetDatastructure: %q was never registered", name)
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	destVal := reflect.ValueOf(dest)
	if destVal.Kind() != reflect.Ptr {
		return newError(TypeMismatch, "", "GetDatastructure: dest must be a pointer, got %s", destVal.Kind())
	}
	if slot.val == nil {
		return nil
	}
	storedVal := reflect.ValueOf(slot.val)
	if storedVal.Type() != destVal.Elem().Type() {
		return newError(TypeMismatch, "", "GetDatastructure: %q holds %s, dest wants %s", name, storedVal.Type(), destVal.Elem().Type())
	}
	destVal.Elem().Set(storedVal)
	return nil
}

// DatastructureAllocation returns the byte budget most recently assigned
// to the named datastructure by the Memory runtime.
func DatastructureAllocation(m *NodeMap, name string) (int64, error) {
	root := m.reg.find()
	root.mu.Lock()
	slot, ok := root.datastructures[name]
	root.mu.Unlock()
	if !ok {
		return 0, newError(UnregisteredDatastructure, "", "DatastructureAllocation: %q was never registered", name)
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.allocated, nil
}

// RestrictDatastructureToPhases marks name as only relevant to the given
// phase indices, so the Memory runtime only considers it a consumer
// during those phases. Without this call, a registered datastructure is
// treated as a consumer in every phase.
func RestrictDatastructureToPhases(m *NodeMap, name string, phaseIndices []int) error {
	root := m.reg.find()
	root.mu.Lock()
	slot, ok := root.datastructures[name]
	root.mu.Unlock()
	if !ok {
		return newError(UnregisteredDatastructure, "", "RestrictDatastructureToPhases: %q was never registered", name)
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	slot.phases = make(map[int]bool, len(phaseIndices))
	for _, idx := range phaseIndices {
		slot.phases[idx] = true
	}
	return nil
}
