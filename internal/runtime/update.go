package runtime

import (
	"errors"
	"fmt"
)

// DefaultMaxTicks is the default Settle limit.
const DefaultMaxTicks = 64

// Update runs one tick.
//
// It returns false and does nothing if no change records are pending.
// Otherwise it snapshots and clears the buffer and, for each record in
// order, invokes the operations bound to the changed context:
// context-level operations first, then operations for the changed state.
// Records whose context has been withdrawn are skipped.
//
// Mutations made by operations are NOT processed in this call; they are
// buffered for the next Update.
//
// The result reports whether any record addressed a registered context.
// Operation failures are logged and returned joined; they do not stop the
// tick.
func (r *Runtime) Update() (bool, error) {
	if !r.initialized {
		return false, errNotInitialized("Update")
	}
	if r.changes.Len() == 0 {
		return false, nil
	}

	records := r.changes.Drain()
	r.tick++

	hadChanges := false
	var errs []error
	for _, rec := range records {
		e, ok := r.entries[rec.Handle]
		if !ok {
			r.logger.Debug("skipping change of withdrawn context",
				"handle", rec.Handle,
				"state", rec.State,
				"seq", rec.Seq,
			)
			continue
		}
		hadChanges = true

		for _, id := range append([]InstanceID(nil), r.owners[rec.Handle]...) {
			errs = append(errs, r.dispatch(id, e, rec)...)
		}
	}

	r.logger.Debug("tick complete",
		"tick", r.tick,
		"records", len(records),
		"had_changes", hadChanges,
		"deferred", r.changes.Len(),
	)
	r.trace(Event{Kind: EventTick, Detail: fmt.Sprintf("%d records", len(records))})

	return hadChanges, errors.Join(errs...)
}

// dispatch invokes the operations of one instance for one change record.
func (r *Runtime) dispatch(id InstanceID, e *contextEntry, rec ChangeRecord) []error {
	ir, ok := r.instances[id]
	if !ok {
		return nil
	}

	var errs []error
	for _, slot := range ir.inst.Slots() {
		if ir.handles[slot] != e.handle {
			continue
		}
		for _, state := range [2]string{"", rec.State} {
			for _, op := range r.provider.OnChangeOperations(ir.inst.Type, slot, state) {
				// An earlier operation may have torn this instance down.
				if _, live := r.instances[id]; !live {
					return errs
				}

				err := op(ir.inst.Behavior, ir.inst.Contexts)
				ev := Event{
					Kind:     EventHandled,
					Context:  r.typeName(e.typ),
					Handle:   e.handle,
					Behavior: ir.name,
					Instance: id,
					Slot:     slot,
					State:    state,
				}
				if err != nil {
					ev.Detail = err.Error()
					r.logger.Error("change operation failed",
						"behavior", ir.name,
						"instance", id,
						"slot", slot,
						"state", state,
						"error", err,
					)
					errs = append(errs, &OperationError{
						Behavior: ir.name,
						Instance: id,
						Slot:     slot,
						State:    state,
						Err:      err,
					})
				}
				r.trace(ev)
			}
		}
	}
	return errs
}

// Settle calls Update until a tick reports no changes and returns the
// number of ticks that had changes.
//
// If changes are still pending after maxTicks such ticks, Settle stops
// with a StabilizationError. An operation failure stops Settle after the
// tick in which it happened.
func (r *Runtime) Settle(maxTicks int) (int, error) {
	ticks := 0
	for {
		had, err := r.Update()
		if had {
			ticks++
		}
		if err != nil {
			return ticks, err
		}
		if !had {
			return ticks, nil
		}
		if ticks >= maxTicks && r.changes.Len() > 0 {
			return ticks, &StabilizationError{Ticks: ticks, Limit: maxTicks, Pending: r.changes.Len()}
		}
	}
}
