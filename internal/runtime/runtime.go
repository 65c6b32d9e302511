package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/sdb/internal/behavior"
	"github.com/roach88/sdb/internal/meta"
	"github.com/roach88/sdb/internal/state"
)

// DefaultMaxAssemblies bounds the instances assembled by one drain of the
// pending-factory queue. A behavior that creates the contexts it consumes
// would otherwise assemble forever.
const DefaultMaxAssemblies = 1000

// Handle is the stable arena key of a contextualized context.
// Handles are never reused.
type Handle uint64

// InstanceID identifies an assembled behavior instance.
type InstanceID uint64

// contextEntry is one arena slot.
type contextEntry struct {
	handle Handle
	value  any
	typ    reflect.Type
	cells  []state.Observable
}

// instanceRecord is one live behavior instance.
type instanceRecord struct {
	id      InstanceID
	inst    *behavior.Instance
	name    string
	handles map[string]Handle // slot name -> bound context
}

// Runtime is the context registry, lifecycle manager and update loop.
//
// Thread-safety model: none. Every method must be called from the same
// goroutine (or under the caller's own lock). Operations invoked by Update
// may call back into Contextualize, Decontextualize and the query methods.
//
// INVARIANTS:
//   - a context is registered at most once (identity index)
//   - a live instance's bound contexts are all registered, and each lists
//     the instance in the owner map
//   - a context bound to an instance of behavior B is not in B's factory
//     inventory
type Runtime struct {
	provider meta.Provider
	logger   *slog.Logger
	tracer   Tracer
	clock    *Clock

	maxAssemblies int
	initialized   bool
	tick          int64

	nextHandle   Handle
	nextInstance InstanceID

	index   map[any]Handle
	entries map[Handle]*contextEntry
	byType  map[reflect.Type][]Handle

	factories []*behavior.Factory // registration order
	factoryOf map[reflect.Type]*behavior.Factory

	instances map[InstanceID]*instanceRecord
	owners    map[Handle][]InstanceID

	pending *factoryQueue
	changes *changeBuffer
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// WithTracer sets the trace event receiver.
func WithTracer(t Tracer) Option {
	return func(r *Runtime) {
		r.tracer = t
	}
}

// WithMaxAssemblies sets the per-drain assembly limit.
//
// Default: 1000 (DefaultMaxAssemblies)
func WithMaxAssemblies(n int) Option {
	return func(r *Runtime) {
		r.maxAssemblies = n
	}
}

// New creates a runtime backed by provider. Call Initialize before use.
func New(provider meta.Provider, opts ...Option) *Runtime {
	r := &Runtime{
		provider:      provider,
		logger:        slog.Default(),
		tracer:        nopTracer{},
		clock:         NewClock(),
		maxAssemblies: DefaultMaxAssemblies,
		index:         make(map[any]Handle),
		entries:       make(map[Handle]*contextEntry),
		byType:        make(map[reflect.Type][]Handle),
		factoryOf:     make(map[reflect.Type]*behavior.Factory),
		instances:     make(map[InstanceID]*instanceRecord),
		owners:        make(map[Handle][]InstanceID),
		pending:       newFactoryQueue(),
		changes:       newChangeBuffer(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Initialize builds one factory per behavior type, queues the factories that
// need no existing contexts, and assembles them.
func (r *Runtime) Initialize() error {
	if r.initialized {
		return &RuntimeError{Code: ErrCodeAlreadyInitialized, Message: "Initialize called twice"}
	}

	for _, bt := range r.provider.BehaviorTypes() {
		f, err := r.provider.BuildFactory(bt)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		r.factories = append(r.factories, f)
		r.factoryOf[bt] = f

		if f.NumberOfPendingInstantiations() == behavior.Unbounded {
			r.pending.Push(f)
		}
	}
	r.initialized = true

	r.logger.Info("runtime initializing",
		"behaviors", len(r.factories),
		"eager", r.pending.Len(),
	)

	if err := r.drain(); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	r.logger.Info("runtime initialized",
		"instances", len(r.instances),
		"contexts", len(r.entries),
	)
	return nil
}

// Contextualize registers ctx, binds its cells and offers it to every
// factory that requires its type. Instances completed by the offer are
// assembled and registered before Contextualize returns.
//
// Registering an already registered context is a no-op.
func (r *Runtime) Contextualize(ctx any) error {
	if !r.initialized {
		return errNotInitialized("Contextualize")
	}
	if _, _, err := r.contextualize(ctx); err != nil {
		return err
	}
	return r.drain()
}

// contextualize registers ctx without draining the pending queue.
// Returns the entry and whether it was newly registered.
func (r *Runtime) contextualize(ctx any) (*contextEntry, bool, error) {
	if isNil(ctx) {
		return nil, false, errNilContext("Contextualize")
	}
	t := reflect.TypeOf(ctx)
	if !r.provider.IsContextType(t) {
		return nil, false, errUnknownType("Contextualize", t)
	}
	if h, ok := r.index[ctx]; ok {
		return r.entries[h], false, nil
	}

	r.nextHandle++
	e := &contextEntry{handle: r.nextHandle, value: ctx, typ: t}
	for _, info := range r.provider.BindableStates(t) {
		cell := info.Cell(ctx)
		handle, name := e.handle, info.Name
		cell.Bind(func() { r.record(handle, name) })
		e.cells = append(e.cells, cell)
	}

	r.index[ctx] = e.handle
	r.entries[e.handle] = e
	r.byType[t] = append(r.byType[t], e.handle)

	r.logger.Debug("context registered",
		"context", r.typeName(t),
		"handle", e.handle,
		"cells", len(e.cells),
	)
	r.trace(Event{Kind: EventContextualized, Context: r.typeName(t), Handle: e.handle})

	for _, f := range r.factories {
		if !f.Requires(t) {
			continue
		}
		if err := f.AddAvailableDependency(ctx); err != nil {
			return nil, false, err
		}
		if f.CanInstantiate() {
			r.pending.Push(f)
		}
	}
	return e, true, nil
}

// Decontextualize withdraws ctx. Every instance bound to it is torn down:
// its teardown operations run, then its other contexts are unlinked and
// offered back to its factory. Withdrawing an unregistered context is a
// no-op.
//
// Teardown operation failures are logged and returned joined; the
// withdrawal itself always completes.
func (r *Runtime) Decontextualize(ctx any) error {
	if !r.initialized {
		return errNotInitialized("Decontextualize")
	}
	if isNil(ctx) {
		return errNilContext("Decontextualize")
	}
	h, ok := r.index[ctx]
	if !ok {
		return nil
	}
	e := r.entries[h]

	for _, cell := range e.cells {
		cell.Unbind()
	}
	delete(r.index, ctx)
	delete(r.entries, h)
	r.byType[e.typ] = slices.DeleteFunc(r.byType[e.typ], func(x Handle) bool { return x == h })
	for _, f := range r.factories {
		f.RemoveAvailableDependency(ctx)
	}

	r.logger.Debug("context withdrawn",
		"context", r.typeName(e.typ),
		"handle", h,
		"owners", len(r.owners[h]),
	)
	r.trace(Event{Kind: EventDecontextualized, Context: r.typeName(e.typ), Handle: h})

	var errs []error
	for _, id := range slices.Clone(r.owners[h]) {
		errs = append(errs, r.destroy(id, h)...)
	}
	delete(r.owners, h)

	if err := r.drain(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// destroy tears down one instance after its context cause was withdrawn.
func (r *Runtime) destroy(id InstanceID, cause Handle) []error {
	rec, ok := r.instances[id]
	if !ok {
		return nil
	}
	delete(r.instances, id)

	var errs []error
	for _, op := range r.provider.OnDestroyOperations(rec.inst.Type) {
		if err := op(rec.inst.Behavior, rec.inst.Contexts); err != nil {
			r.logger.Error("teardown operation failed",
				"behavior", rec.name,
				"instance", id,
				"error", err,
			)
			errs = append(errs, &OperationError{Behavior: rec.name, Instance: id, Err: err})
		}
	}

	f := r.factoryOf[rec.inst.Type]
	for _, slot := range rec.inst.Slots() {
		h := rec.handles[slot]
		r.unlink(h, id)
		if h == cause {
			continue
		}
		e, live := r.entries[h]
		if !live || f == nil {
			continue
		}
		if err := f.AddAvailableDependency(e.value); err != nil {
			errs = append(errs, err)
			continue
		}
		if f.CanInstantiate() {
			r.pending.Push(f)
		}
	}

	r.logger.Info("behavior destroyed",
		"behavior", rec.name,
		"instance", id,
		"cause", cause,
	)
	r.trace(Event{Kind: EventDestroyed, Behavior: rec.name, Instance: id, Handle: cause})
	return errs
}

// unlink removes id from the owner list of h.
func (r *Runtime) unlink(h Handle, id InstanceID) {
	owners := slices.DeleteFunc(r.owners[h], func(x InstanceID) bool { return x == id })
	if len(owners) == 0 {
		delete(r.owners, h)
		return
	}
	r.owners[h] = owners
}

// drain processes queued factories until the queue is empty.
// Registering an instance may contextualize the contexts it created,
// which can queue further factories; those are drained in the same pass.
func (r *Runtime) drain() error {
	assembled := 0
	for {
		f, ok := r.pending.Pop()
		if !ok {
			return nil
		}

		instances, err := f.Process()
		if err != nil {
			r.logger.Error("assembly failed",
				"behavior", r.typeName(f.BehaviorType()),
				"error", err,
			)
			return err
		}

		for i, inst := range instances {
			if assembled == r.maxAssemblies {
				r.giveBack(f, instances[i:])
				return errAssemblyLimit(r.maxAssemblies)
			}
			assembled++
			if err := r.register(inst); err != nil {
				return err
			}
		}
	}
}

// giveBack returns the existing contexts reserved by unregistered
// instances to f's inventory and queues f again. Their self-created
// contexts were never contextualized and are dropped with them.
func (r *Runtime) giveBack(f *behavior.Factory, unregistered []*behavior.Instance) {
	for _, inst := range unregistered {
		for _, slot := range inst.Slots() {
			if inst.IsCreated(slot) {
				continue
			}
			ctx := inst.Contexts[slot]
			if _, ok := r.index[ctx]; !ok {
				continue
			}
			if err := f.AddAvailableDependency(ctx); err != nil {
				r.logger.Error("return context to factory",
					"behavior", r.typeName(f.BehaviorType()),
					"slot", slot,
					"error", err,
				)
			}
		}
	}
	if f.CanInstantiate() {
		r.pending.Push(f)
	}
}

// register adds an assembled instance: its self-created contexts are
// contextualized and every bound context is linked to it.
func (r *Runtime) register(inst *behavior.Instance) error {
	name := r.typeName(inst.Type)
	handles := make(map[string]Handle, len(inst.Contexts))

	for _, slot := range inst.Slots() {
		ctx := inst.Contexts[slot]
		if inst.IsCreated(slot) {
			e, _, err := r.contextualize(ctx)
			if err != nil {
				return fmt.Errorf("register %s: slot %q: %w", name, slot, err)
			}
			// The creator holds it now; its own factory must not hand it out again.
			r.factoryOf[inst.Type].RemoveAvailableDependency(ctx)
			handles[slot] = e.handle
			continue
		}
		h, ok := r.index[ctx]
		if !ok {
			return fmt.Errorf("register %s: slot %q: bound context is not registered", name, slot)
		}
		handles[slot] = h
	}

	r.nextInstance++
	rec := &instanceRecord{id: r.nextInstance, inst: inst, name: name, handles: handles}
	r.instances[rec.id] = rec
	for _, slot := range inst.Slots() {
		h := handles[slot]
		if !slices.Contains(r.owners[h], rec.id) {
			r.owners[h] = append(r.owners[h], rec.id)
		}
	}

	r.logger.Info("behavior instantiated",
		"behavior", name,
		"instance", rec.id,
		"slots", len(handles),
	)
	r.trace(Event{Kind: EventInstantiated, Behavior: name, Instance: rec.id})
	return nil
}

// record appends a change record. Bound to every cell of every
// registered context.
func (r *Runtime) record(h Handle, stateName string) {
	rec := ChangeRecord{Seq: r.clock.Next(), Handle: h, State: stateName}
	r.changes.Append(rec)

	ev := Event{Kind: EventChanged, Handle: h, State: stateName}
	if e, ok := r.entries[h]; ok {
		ev.Context = r.typeName(e.typ)
	}
	r.traceAt(rec.Seq, ev)
}

func (r *Runtime) trace(ev Event) {
	r.traceAt(r.clock.Next(), ev)
}

func (r *Runtime) traceAt(seq int64, ev Event) {
	ev.Seq = seq
	ev.Tick = r.tick
	r.tracer.Record(ev)
}

// typeName returns the provider's display name for t when it has one.
func (r *Runtime) typeName(t reflect.Type) string {
	if n, ok := r.provider.(interface{ Name(reflect.Type) string }); ok {
		return n.Name(t)
	}
	return strings.TrimPrefix(t.String(), "*")
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
