package behavior

import (
	"fmt"
	"reflect"
)

// AssembleFunc constructs one behavior from a reserved dependency set.
//
// It reads existing contexts through the Assembly and must Provide every
// self-created slot before returning.
type AssembleFunc func(a *Assembly) (any, error)

// Assembly is the argument to an AssembleFunc: the reserved existing
// contexts keyed by slot name, and the outputs for self-created slots.
type Assembly struct {
	slots    map[string]Slot
	existing Bindings
	created  Bindings
}

func newAssembly(slots map[string]Slot, existing Bindings) *Assembly {
	return &Assembly{
		slots:    slots,
		existing: existing,
		created:  make(Bindings),
	}
}

// Existing returns the context reserved for an Existing slot, or nil.
func (a *Assembly) Existing(name string) any {
	return a.existing[name]
}

// Provide fills a SelfCreated slot.
func (a *Assembly) Provide(name string, ctx any) error {
	slot, ok := a.slots[name]
	if !ok || slot.Fulfillment != SelfCreated {
		return fmt.Errorf("provide %q: %w", name, ErrUnknownSlot)
	}
	if ctx != nil && reflect.TypeOf(ctx) != slot.Type {
		return fmt.Errorf("provide %q: got %T, want %s: %w", name, ctx, slot.Type, ErrSlotType)
	}
	a.created[name] = ctx
	return nil
}

// Dep returns the existing context in slot name as T.
func Dep[T any](a *Assembly, name string) (T, error) {
	v, ok := a.existing[name].(T)
	if !ok {
		return v, fmt.Errorf("dependency %q as %s: %w", name, reflect.TypeFor[T](), ErrUnknownSlot)
	}
	return v, nil
}

// isNil reports nil, including typed nil pointers wrapped in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
