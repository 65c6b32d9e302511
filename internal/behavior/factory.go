package behavior

import (
	"fmt"
	"reflect"
)

// Unbounded is the pending count of a factory with no Existing slots.
// Such a factory can always assemble exactly one instance.
const Unbounded = -1

// Factory matches available contexts against a behavior's Existing slots
// and assembles complete dependency sets into instances.
//
// The factory owns an inventory of available, unreserved contexts per
// required type. Process consumes from it; the runtime feeds it.
//
// INVARIANTS:
//   - each context appears at most once in the inventory
//   - only contexts whose type some Existing slot requires are kept
//   - inventory order per type is insertion order (first in, first consumed)
type Factory struct {
	behaviorType reflect.Type
	assemble     AssembleFunc

	slots    []Slot          // all slots, declaration order
	bySlot   map[string]Slot // all slots by name
	existing []Slot          // Existing slots, declaration order
	created  []Slot          // SelfCreated slots, declaration order

	types     []reflect.Type       // distinct required types, first-declared order
	demand    map[reflect.Type]int // Existing slots per type
	available map[reflect.Type][]any
}

// NewFactory creates a factory for behaviorType.
// Slots keep their declaration order; names must be unique.
func NewFactory(behaviorType reflect.Type, assemble AssembleFunc, slots []Slot) (*Factory, error) {
	if assemble == nil {
		return nil, fmt.Errorf("factory %s: nil assemble function", behaviorType)
	}

	f := &Factory{
		behaviorType: behaviorType,
		assemble:     assemble,
		bySlot:       make(map[string]Slot, len(slots)),
		demand:       make(map[reflect.Type]int),
		available:    make(map[reflect.Type][]any),
	}

	for _, s := range slots {
		if _, dup := f.bySlot[s.Name]; dup {
			return nil, fmt.Errorf("factory %s: duplicate slot %q", behaviorType, s.Name)
		}
		f.bySlot[s.Name] = s
		f.slots = append(f.slots, s)

		switch s.Fulfillment {
		case Existing:
			f.existing = append(f.existing, s)
			if f.demand[s.Type] == 0 {
				f.types = append(f.types, s.Type)
			}
			f.demand[s.Type]++
		case SelfCreated:
			f.created = append(f.created, s)
		default:
			return nil, fmt.Errorf("factory %s: slot %q: unsupported %s", behaviorType, s.Name, s.Fulfillment)
		}
	}

	return f, nil
}

// BehaviorType returns the type of behavior this factory assembles.
func (f *Factory) BehaviorType() reflect.Type {
	return f.behaviorType
}

// RequiredDependencyTypes returns the distinct context types required by
// Existing slots, in first-declared order.
func (f *Factory) RequiredDependencyTypes() []reflect.Type {
	out := make([]reflect.Type, len(f.types))
	copy(out, f.types)
	return out
}

// Requires reports whether some Existing slot requires type t.
func (f *Factory) Requires(t reflect.Type) bool {
	return f.demand[t] > 0
}

// AddAvailableDependency offers ctx to the factory.
//
// It is kept only if its type is required and the identical instance is not
// already available; otherwise the call is a no-op.
func (f *Factory) AddAvailableDependency(ctx any) error {
	if isNil(ctx) {
		return fmt.Errorf("factory %s: %w", f.behaviorType, ErrNilDependency)
	}
	t := reflect.TypeOf(ctx)
	if f.demand[t] == 0 {
		return nil
	}
	for _, have := range f.available[t] {
		if have == ctx {
			return nil
		}
	}
	f.available[t] = append(f.available[t], ctx)
	return nil
}

// RemoveAvailableDependency withdraws ctx by identity.
// Returns false if it was not available.
func (f *Factory) RemoveAvailableDependency(ctx any) bool {
	if isNil(ctx) {
		return false
	}
	t := reflect.TypeOf(ctx)
	list := f.available[t]
	for i, have := range list {
		if have == ctx {
			f.available[t] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Holds reports whether ctx itself is in the inventory.
func (f *Factory) Holds(ctx any) bool {
	if isNil(ctx) {
		return false
	}
	for _, have := range f.available[reflect.TypeOf(ctx)] {
		if have == ctx {
			return true
		}
	}
	return false
}

// Available returns how many contexts of type t are available.
func (f *Factory) Available(t reflect.Type) int {
	return len(f.available[t])
}

// CanInstantiate reports whether Process would assemble at least one instance.
func (f *Factory) CanInstantiate() bool {
	n := f.NumberOfPendingInstantiations()
	return n == Unbounded || n > 0
}

// NumberOfPendingInstantiations returns how many complete dependency sets
// can be assembled from the current inventory: the minimum over required
// types of available/slots. Unbounded if there are no Existing slots.
func (f *Factory) NumberOfPendingInstantiations() int {
	if len(f.existing) == 0 {
		return Unbounded
	}
	pending := -1
	for _, t := range f.types {
		sets := len(f.available[t]) / f.demand[t]
		if pending < 0 || sets < pending {
			pending = sets
		}
	}
	return pending
}

// Process assembles as many instances as NumberOfPendingInstantiations
// reports, or exactly one for an Unbounded factory.
//
// Any construction failure aborts the whole call: no instance is returned
// and the inventory is restored to what it was before the call.
func (f *Factory) Process() ([]*Instance, error) {
	n := f.NumberOfPendingInstantiations()
	if n == Unbounded {
		n = 1
	}
	if n == 0 {
		return nil, nil
	}

	snapshot := f.snapshot()
	instances := make([]*Instance, 0, n)
	for range n {
		inst, err := f.assembleOne()
		if err != nil {
			f.available = snapshot
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// assembleOne reserves one dependency set and runs the assemble function.
func (f *Factory) assembleOne() (*Instance, error) {
	existing := make(Bindings, len(f.existing))
	for _, s := range f.existing {
		list := f.available[s.Type]
		existing[s.Name] = list[0]
		list[0] = nil
		f.available[s.Type] = list[1:]
	}

	a := newAssembly(f.bySlot, existing)
	b, err := f.assemble(a)
	if err != nil {
		return nil, &ConstructionError{Behavior: f.behaviorType, Err: err}
	}
	if isNil(b) {
		return nil, &ConstructionError{Behavior: f.behaviorType, Err: fmt.Errorf("assemble returned nil behavior")}
	}

	inst := &Instance{
		Behavior: b,
		Type:     f.behaviorType,
		Contexts: make(Bindings, len(f.slots)),
		Created:  make(Bindings, len(f.created)),
		order:    make([]string, 0, len(f.slots)),
	}
	for _, s := range f.slots {
		inst.order = append(inst.order, s.Name)
		if s.Fulfillment == Existing {
			inst.Contexts[s.Name] = existing[s.Name]
			continue
		}
		ctx := a.created[s.Name]
		if isNil(ctx) {
			return nil, &ConstructionError{Behavior: f.behaviorType, Slot: s.Name, Err: ErrUnfulfilled}
		}
		inst.Contexts[s.Name] = ctx
		inst.Created[s.Name] = ctx
	}
	return inst, nil
}

func (f *Factory) snapshot() map[reflect.Type][]any {
	out := make(map[reflect.Type][]any, len(f.available))
	for t, list := range f.available {
		out[t] = append([]any(nil), list...)
	}
	return out
}
