package meta

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/sdb/internal/behavior"
	"github.com/roach88/sdb/internal/state"
)

// State declares one observable cell of context type T.
type State[T any] struct {
	Name string
	Cell func(T) state.Observable
}

// Observe declares the cell returned by cell under name.
func Observe[T any](name string, cell func(T) state.Observable) State[T] {
	return State[T]{Name: name, Cell: cell}
}

// ContextSpec is the registration shape of a context type.
type ContextSpec[T any] struct {
	// Name overrides the display name (default: type name without "*").
	Name   string
	States []State[T]
}

// Handler binds an operation to a slot, optionally narrowed to one state.
type Handler[B any] struct {
	Slot  string
	State string // empty: any change to the slot's context
	Fn    func(b B, bound behavior.Bindings) error
}

// OnContext runs fn on any change to the context bound to slot.
func OnContext[B any](slot string, fn func(B, behavior.Bindings) error) Handler[B] {
	return Handler[B]{Slot: slot, Fn: fn}
}

// OnState runs fn when the named state of the context bound to slot changes.
func OnState[B any](slot, state string, fn func(B, behavior.Bindings) error) Handler[B] {
	return Handler[B]{Slot: slot, State: state, Fn: fn}
}

// BehaviorSpec is the registration shape of a behavior type.
type BehaviorSpec[B any] struct {
	// Name overrides the display name (default: type name without "*").
	Name      string
	Slots     []behavior.Slot
	Assemble  func(a *behavior.Assembly) (B, error)
	OnChange  []Handler[B]
	OnDestroy []func(b B, bound behavior.Bindings) error
}

type contextEntry struct {
	typ    reflect.Type
	name   string
	states []StateInfo
	byName map[string]bool
}

type handlerKey struct {
	slot  string
	state string
}

type behaviorEntry struct {
	typ       reflect.Type
	name      string
	slots     []behavior.Slot
	assemble  behavior.AssembleFunc
	onChange  map[handlerKey][]Operation
	keys      []handlerKey // registration order, for Describe
	onDestroy []Operation
}

// Registry is a static Provider populated by RegisterContext and
// RegisterBehavior. Contexts must be registered before the behaviors that
// name them in slots.
//
// Registration is not safe for concurrent use; populate the registry once
// before handing it to a runtime.
type Registry struct {
	contexts  map[reflect.Type]*contextEntry
	ctxOrder  []reflect.Type
	behaviors map[reflect.Type]*behaviorEntry
	behOrder  []reflect.Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		contexts:  make(map[reflect.Type]*contextEntry),
		behaviors: make(map[reflect.Type]*behaviorEntry),
	}
}

// RegisterContext registers context type T. T must be a pointer type so
// that contexts have identity.
func RegisterContext[T any](r *Registry, spec ContextSpec[T]) error {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Pointer {
		return fmt.Errorf("register context %s: context types must be pointers", t)
	}
	if _, dup := r.contexts[t]; dup {
		return fmt.Errorf("register context %s: already registered", t)
	}

	e := &contextEntry{
		typ:    t,
		name:   displayName(spec.Name, t),
		byName: make(map[string]bool, len(spec.States)),
	}
	for _, s := range spec.States {
		if s.Name == "" || s.Cell == nil {
			return fmt.Errorf("register context %s: state needs a name and a cell accessor", t)
		}
		if e.byName[s.Name] {
			return fmt.Errorf("register context %s: duplicate state %q", t, s.Name)
		}
		e.byName[s.Name] = true
		cell := s.Cell
		e.states = append(e.states, StateInfo{
			Name: s.Name,
			Cell: func(ctx any) state.Observable { return cell(ctx.(T)) },
		})
	}

	r.contexts[t] = e
	r.ctxOrder = append(r.ctxOrder, t)
	return nil
}

// RegisterBehavior registers behavior type B.
//
// Every slot must name a registered context type, and every handler must
// name a declared slot and, if narrowed, a state of that slot's context.
func RegisterBehavior[B any](r *Registry, spec BehaviorSpec[B]) error {
	t := reflect.TypeFor[B]()
	if _, dup := r.behaviors[t]; dup {
		return fmt.Errorf("register behavior %s: already registered", t)
	}
	if spec.Assemble == nil {
		return fmt.Errorf("register behavior %s: assemble function is required", t)
	}

	slots := make(map[string]behavior.Slot, len(spec.Slots))
	for _, s := range spec.Slots {
		if s.Name == "" {
			return fmt.Errorf("register behavior %s: slot name is required", t)
		}
		if _, dup := slots[s.Name]; dup {
			return fmt.Errorf("register behavior %s: duplicate slot %q", t, s.Name)
		}
		if _, ok := r.contexts[s.Type]; !ok {
			return fmt.Errorf("register behavior %s: slot %q: %s is not a registered context", t, s.Name, s.Type)
		}
		slots[s.Name] = s
	}

	assemble := spec.Assemble
	e := &behaviorEntry{
		typ:   t,
		name:  displayName(spec.Name, t),
		slots: append([]behavior.Slot(nil), spec.Slots...),
		assemble: func(a *behavior.Assembly) (any, error) {
			b, err := assemble(a)
			if err != nil {
				return nil, err
			}
			return b, nil
		},
		onChange: make(map[handlerKey][]Operation),
	}

	for _, h := range spec.OnChange {
		s, ok := slots[h.Slot]
		if !ok {
			return fmt.Errorf("register behavior %s: handler names unknown slot %q", t, h.Slot)
		}
		if h.State != "" && !r.contexts[s.Type].byName[h.State] {
			return fmt.Errorf("register behavior %s: handler names unknown state %q of %s", t, h.State, s.Type)
		}
		if h.Fn == nil {
			return fmt.Errorf("register behavior %s: handler for %s.%s has no function", t, h.Slot, h.State)
		}
		key := handlerKey{slot: h.Slot, state: h.State}
		if _, seen := e.onChange[key]; !seen {
			e.keys = append(e.keys, key)
		}
		e.onChange[key] = append(e.onChange[key], erase(h.Fn))
	}
	for _, fn := range spec.OnDestroy {
		if fn == nil {
			return fmt.Errorf("register behavior %s: nil teardown operation", t)
		}
		e.onDestroy = append(e.onDestroy, erase(fn))
	}

	r.behaviors[t] = e
	r.behOrder = append(r.behOrder, t)
	return nil
}

// erase adapts a typed operation to an Operation.
func erase[B any](fn func(B, behavior.Bindings) error) Operation {
	return func(b any, bound behavior.Bindings) error {
		typed, ok := b.(B)
		if !ok {
			return fmt.Errorf("operation expects %s, got %T", reflect.TypeFor[B](), b)
		}
		return fn(typed, bound)
	}
}

func displayName(name string, t reflect.Type) string {
	if name != "" {
		return name
	}
	return strings.TrimPrefix(t.String(), "*")
}

// IsContextType implements Provider.
func (r *Registry) IsContextType(t reflect.Type) bool {
	_, ok := r.contexts[t]
	return ok
}

// BehaviorTypes implements Provider.
func (r *Registry) BehaviorTypes() []reflect.Type {
	out := make([]reflect.Type, len(r.behOrder))
	copy(out, r.behOrder)
	return out
}

// RequiredDependencies implements Provider.
func (r *Registry) RequiredDependencies(b reflect.Type) []behavior.Slot {
	e, ok := r.behaviors[b]
	if !ok {
		return nil
	}
	var out []behavior.Slot
	for _, s := range e.slots {
		if s.Fulfillment == behavior.Existing {
			out = append(out, s)
		}
	}
	return out
}

// BuildFactory implements Provider.
func (r *Registry) BuildFactory(b reflect.Type) (*behavior.Factory, error) {
	e, ok := r.behaviors[b]
	if !ok {
		return nil, fmt.Errorf("build factory: %s is not a registered behavior", b)
	}
	return behavior.NewFactory(e.typ, e.assemble, e.slots)
}

// BindableStates implements Provider.
func (r *Registry) BindableStates(c reflect.Type) []StateInfo {
	e, ok := r.contexts[c]
	if !ok {
		return nil
	}
	out := make([]StateInfo, len(e.states))
	copy(out, e.states)
	return out
}

// OnChangeOperations implements Provider.
func (r *Registry) OnChangeOperations(b reflect.Type, slot, state string) []Operation {
	e, ok := r.behaviors[b]
	if !ok {
		return nil
	}
	return e.onChange[handlerKey{slot: slot, state: state}]
}

// OnDestroyOperations implements Provider.
func (r *Registry) OnDestroyOperations(b reflect.Type) []Operation {
	e, ok := r.behaviors[b]
	if !ok {
		return nil
	}
	return e.onDestroy
}

// Name returns the display name of a registered context or behavior type.
func (r *Registry) Name(t reflect.Type) string {
	if e, ok := r.contexts[t]; ok {
		return e.name
	}
	if e, ok := r.behaviors[t]; ok {
		return e.name
	}
	return displayName("", t)
}
