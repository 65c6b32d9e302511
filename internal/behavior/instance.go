package behavior

import (
	"fmt"
	"reflect"
)

// Bindings maps slot names to bound contexts.
type Bindings map[string]any

// Get returns the context bound to slot name as T.
// ok is false if the slot is empty or holds another type.
func Get[T any](b Bindings, name string) (v T, ok bool) {
	v, ok = b[name].(T)
	return v, ok
}

// MustGet is Get for callers that declared the slot themselves.
// It panics if the slot is missing, which is a programming error.
func MustGet[T any](b Bindings, name string) T {
	v, ok := Get[T](b, name)
	if !ok {
		panic(fmt.Sprintf("behavior: slot %q not bound to %s", name, reflect.TypeFor[T]()))
	}
	return v
}

// Instance is one assembled behavior together with the contexts it was
// assembled from.
//
// INVARIANT: Contexts holds exactly one context per declared slot, and
// Created is the subset filled by the behavior itself.
type Instance struct {
	Behavior any
	Type     reflect.Type
	Contexts Bindings
	Created  Bindings

	order []string // slot names in declaration order
}

// Slots returns the slot names in declaration order.
func (i *Instance) Slots() []string {
	out := make([]string, len(i.order))
	copy(out, i.order)
	return out
}

// IsCreated reports whether the context in slot name was self-created.
func (i *Instance) IsCreated(name string) bool {
	_, ok := i.Created[name]
	return ok
}
