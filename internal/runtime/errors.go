package runtime

import (
	"errors"
	"fmt"
	"reflect"
)

// RuntimeError represents a usage error detected by the runtime.
//
// Usage errors are the embedding application's bug to fix: calling the
// runtime before Initialize, passing a nil context, or naming a type the
// metadata provider does not know. They are never swallowed.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Type is the context or behavior type involved, if any.
	Type string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNotInitialized indicates a call before Initialize.
	ErrCodeNotInitialized RuntimeErrorCode = "NOT_INITIALIZED"

	// ErrCodeAlreadyInitialized indicates a second Initialize.
	ErrCodeAlreadyInitialized RuntimeErrorCode = "ALREADY_INITIALIZED"

	// ErrCodeNilContext indicates a nil context argument.
	ErrCodeNilContext RuntimeErrorCode = "NIL_CONTEXT"

	// ErrCodeUnknownType indicates a type unknown to the metadata provider.
	ErrCodeUnknownType RuntimeErrorCode = "UNKNOWN_TYPE"

	// ErrCodeAssemblyLimit indicates a drain assembled more instances than allowed.
	ErrCodeAssemblyLimit RuntimeErrorCode = "ASSEMBLY_LIMIT"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.Type)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUsageError returns true if err is a RuntimeError caused by the caller.
// Uses errors.As to handle wrapped errors.
func IsUsageError(err error) bool {
	var re *RuntimeError
	if !errors.As(err, &re) {
		return false
	}
	switch re.Code {
	case ErrCodeNotInitialized, ErrCodeAlreadyInitialized, ErrCodeNilContext, ErrCodeUnknownType:
		return true
	}
	return false
}

// HasCode returns true if err is a RuntimeError with the given code.
func HasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == code
}

func errNotInitialized(op string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNotInitialized,
		Message: op + " called before Initialize",
	}
}

func errNilContext(op string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNilContext,
		Message: op + " requires a non-nil context",
	}
}

func errUnknownType(op string, t reflect.Type) *RuntimeError {
	name := "<nil>"
	if t != nil {
		name = t.String()
	}
	return &RuntimeError{
		Code:    ErrCodeUnknownType,
		Message: op + ": not a registered context type",
		Type:    name,
	}
}

func errAssemblyLimit(limit int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeAssemblyLimit,
		Message: fmt.Sprintf("more than %d instances assembled in one pass", limit),
		Details: map[string]string{
			"max_assemblies": fmt.Sprintf("%d", limit),
		},
	}
}

// StabilizationError is returned by Settle when changes are still pending
// after the tick limit. It usually means two behaviors feed each other.
type StabilizationError struct {
	Ticks   int // ticks run
	Limit   int // maximum allowed ticks
	Pending int // change records still buffered
}

// Error implements the error interface.
func (e *StabilizationError) Error() string {
	return fmt.Sprintf("runtime did not settle: %d ticks >= %d limit, %d changes pending",
		e.Ticks, e.Limit, e.Pending)
}

// IsStabilizationError returns true if err is a StabilizationError.
func IsStabilizationError(err error) bool {
	var se *StabilizationError
	return errors.As(err, &se)
}

// OperationError wraps a failed change or teardown operation.
type OperationError struct {
	Behavior string
	Instance InstanceID
	Slot     string // empty for teardown operations
	State    string
	Err      error
}

func (e *OperationError) Error() string {
	if e.Slot == "" {
		return fmt.Sprintf("teardown %s#%d: %v", e.Behavior, e.Instance, e.Err)
	}
	if e.State == "" {
		return fmt.Sprintf("%s#%d on %s: %v", e.Behavior, e.Instance, e.Slot, e.Err)
	}
	return fmt.Sprintf("%s#%d on %s.%s: %v", e.Behavior, e.Instance, e.Slot, e.State, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
