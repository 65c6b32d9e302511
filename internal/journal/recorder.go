package journal

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/sdb/internal/runtime"
)

// Recorder buffers the events of one run and writes them to a journal on
// Flush. It implements runtime.Tracer.
//
// Thread-safety: Record and Flush may be called from different goroutines.
type Recorder struct {
	j     *Journal
	runID string
	label string

	mu      sync.Mutex
	pending []runtime.Event
	flushed int
}

// NewRecorder creates a recorder for a new run. The run row is written by
// the first Flush, even if no events were recorded.
func (j *Journal) NewRecorder(runID, label string) *Recorder {
	return &Recorder{j: j, runID: runID, label: label}
}

// RunID returns the run this recorder writes to.
func (r *Recorder) RunID() string {
	return r.runID
}

// Record implements runtime.Tracer.
func (r *Recorder) Record(ev runtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, ev)
}

// Buffered returns the number of events not yet flushed.
func (r *Recorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Flushed returns the number of events written so far.
func (r *Recorder) Flushed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushed
}

// Flush writes the buffered events in one transaction.
//
// Uses ON CONFLICT DO NOTHING on (run_id, seq), so re-flushing the same
// events is harmless. On error the buffer is kept for a later attempt.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("flush run %s: begin tx: %w", r.runID, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, label) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, r.runID, r.label); err != nil {
		return fmt.Errorf("flush run %s: write run: %w", r.runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(run_id, seq, tick, kind, context, handle, behavior, instance, slot, state, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("flush run %s: prepare: %w", r.runID, err)
	}
	defer stmt.Close()

	for _, ev := range r.pending {
		if _, err := stmt.ExecContext(ctx,
			r.runID,
			ev.Seq,
			ev.Tick,
			string(ev.Kind),
			ev.Context,
			int64(ev.Handle),
			ev.Behavior,
			int64(ev.Instance),
			ev.Slot,
			ev.State,
			ev.Detail,
		); err != nil {
			return fmt.Errorf("flush run %s: write event seq=%d: %w", r.runID, ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("flush run %s: commit: %w", r.runID, err)
	}

	r.flushed += len(r.pending)
	r.pending = r.pending[:0]
	return nil
}
