package runtime

import (
	"cmp"
	"reflect"
	"slices"

	"github.com/roach88/sdb/internal/behavior"
)

// GetContext returns the first registered context of type T, or the zero
// value if none is registered. T must be a registered context type.
func GetContext[T any](r *Runtime) (T, error) {
	var zero T
	all, err := r.ContextsOf(reflect.TypeFor[T]())
	if err != nil || len(all) == 0 {
		return zero, err
	}
	return all[0].(T), nil
}

// GetContexts returns every registered context of type T in registration
// order. T must be a registered context type.
func GetContexts[T any](r *Runtime) ([]T, error) {
	all, err := r.ContextsOf(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	out := make([]T, len(all))
	for i, ctx := range all {
		out[i] = ctx.(T)
	}
	return out, nil
}

// ContextsOf returns every registered context of type t in registration order.
func (r *Runtime) ContextsOf(t reflect.Type) ([]any, error) {
	if !r.initialized {
		return nil, errNotInitialized("GetContexts")
	}
	if !r.provider.IsContextType(t) {
		return nil, errUnknownType("GetContexts", t)
	}
	handles := r.byType[t]
	out := make([]any, 0, len(handles))
	for _, h := range handles {
		out = append(out, r.entries[h].value)
	}
	return out, nil
}

// IsContextualized reports whether ctx is currently registered.
func (r *Runtime) IsContextualized(ctx any) bool {
	if isNil(ctx) {
		return false
	}
	_, ok := r.index[ctx]
	return ok
}

// InstanceInfo is a snapshot of one live behavior instance.
type InstanceInfo struct {
	ID       InstanceID
	Behavior string
	Instance *behavior.Instance
}

// Instances returns the live instances ordered by ID.
func (r *Runtime) Instances() []InstanceInfo {
	out := make([]InstanceInfo, 0, len(r.instances))
	for _, rec := range r.instances {
		out = append(out, InstanceInfo{ID: rec.id, Behavior: rec.name, Instance: rec.inst})
	}
	slices.SortFunc(out, func(a, b InstanceInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// InstanceCount returns how many live instances the behavior type has.
func (r *Runtime) InstanceCount(behaviorType reflect.Type) int {
	n := 0
	for _, rec := range r.instances {
		if rec.inst.Type == behaviorType {
			n++
		}
	}
	return n
}

// OwnersOf returns the live instances ctx is bound to, ordered by ID.
func (r *Runtime) OwnersOf(ctx any) []InstanceID {
	if isNil(ctx) {
		return nil
	}
	h, ok := r.index[ctx]
	if !ok {
		return nil
	}
	out := slices.Clone(r.owners[h])
	slices.Sort(out)
	return out
}

// Pending returns the number of buffered change records.
func (r *Runtime) Pending() int {
	return r.changes.Len()
}

// Tick returns the number of Update calls that drained records.
func (r *Runtime) Tick() int64 {
	return r.tick
}
