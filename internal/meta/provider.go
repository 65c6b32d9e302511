// Package meta describes contexts and behaviors to the runtime.
//
// The runtime never inspects application types. Everything it needs to know
// (which types are contexts, which cells they expose, which slots a behavior
// declares, which operations run on change or teardown) comes from a
// Provider. Registry is the static, explicitly populated Provider.
package meta

import (
	"reflect"

	"github.com/roach88/sdb/internal/behavior"
	"github.com/roach88/sdb/internal/state"
)

// Operation is a behavior-defined handler. It receives the behavior object
// and the contexts bound to the instance, keyed by slot name.
type Operation func(b any, bound behavior.Bindings) error

// StateInfo names one observable cell of a context type.
type StateInfo struct {
	Name string
	Cell func(ctx any) state.Observable
}

// Provider is the metadata the runtime consumes.
type Provider interface {
	// IsContextType reports whether t is a registered context type.
	IsContextType(t reflect.Type) bool

	// BehaviorTypes returns every known behavior type in registration order.
	BehaviorTypes() []reflect.Type

	// RequiredDependencies returns the Existing slots of a behavior in
	// declaration order. Duplicate types are kept, one entry per slot.
	RequiredDependencies(b reflect.Type) []behavior.Slot

	// BuildFactory returns a fresh factory for a behavior.
	BuildFactory(b reflect.Type) (*behavior.Factory, error)

	// BindableStates returns the observable cells of a context type.
	BindableStates(c reflect.Type) []StateInfo

	// OnChangeOperations returns the operations bound to a slot. An empty
	// state selects operations for any change to the slot's context; a
	// non-empty state selects operations for that state only.
	OnChangeOperations(b reflect.Type, slot, state string) []Operation

	// OnDestroyOperations returns the teardown operations of a behavior.
	OnDestroyOperations(b reflect.Type) []Operation
}
