package behavior

import (
	"fmt"
	"reflect"
)

// Fulfillment says where a slot's context comes from.
type Fulfillment int

const (
	// Existing slots are filled from already-contextualized state.
	Existing Fulfillment = iota
	// SelfCreated slots are filled by the behavior's assemble function.
	SelfCreated
)

func (f Fulfillment) String() string {
	switch f {
	case Existing:
		return "existing"
	case SelfCreated:
		return "self-created"
	default:
		return fmt.Sprintf("fulfillment(%d)", int(f))
	}
}

// Binding is the discipline a bound context follows.
type Binding int

const (
	// Unique: a context serves at most one instance of a behavior type at a time.
	Unique Binding = iota
)

func (b Binding) String() string {
	if b == Unique {
		return "unique"
	}
	return fmt.Sprintf("binding(%d)", int(b))
}

// Slot is a named, typed dependency declared by a behavior.
type Slot struct {
	Name        string
	Type        reflect.Type
	Binding     Binding
	Fulfillment Fulfillment
}

// Require declares an Existing slot of context type T.
func Require[T any](name string) Slot {
	return Slot{Name: name, Type: reflect.TypeFor[T](), Fulfillment: Existing}
}

// Create declares a SelfCreated slot of context type T.
func Create[T any](name string) Slot {
	return Slot{Name: name, Type: reflect.TypeFor[T](), Fulfillment: SelfCreated}
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s (%s, %s)", s.Name, s.Type, s.Fulfillment, s.Binding)
}
