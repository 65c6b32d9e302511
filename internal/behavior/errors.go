package behavior

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNilDependency is returned when a nil context is offered to a factory.
	ErrNilDependency = errors.New("nil dependency")

	// ErrUnknownSlot is returned when an assembly names a slot the behavior
	// does not declare with the right fulfillment.
	ErrUnknownSlot = errors.New("unknown slot")

	// ErrSlotType is returned when a provided context has the wrong type.
	ErrSlotType = errors.New("context type does not match slot")

	// ErrUnfulfilled is wrapped by ConstructionError when a self-created
	// slot is still empty after assembly.
	ErrUnfulfilled = errors.New("self-created slot left unfulfilled")
)

// ConstructionError reports a failed assembly. It aborts the whole
// Factory.Process call that produced it.
type ConstructionError struct {
	Behavior reflect.Type
	Slot     string // empty when the assemble function itself failed
	Err      error
}

func (e *ConstructionError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("construct %s: slot %q: %v", e.Behavior, e.Slot, e.Err)
	}
	return fmt.Sprintf("construct %s: %v", e.Behavior, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// IsConstructionError returns true if err wraps a ConstructionError.
func IsConstructionError(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}
