package journal

import (
	"context"
	"fmt"

	"github.com/roach88/sdb/internal/runtime"
)

// RunSummary describes one stored run.
type RunSummary struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Events int    `json:"events"`
}

// ListRuns returns every run ordered by ID. UUIDv7 IDs sort by start.
//
// Returns an empty slice (not nil) if the journal has no runs.
func (j *Journal) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT r.id, r.label, COUNT(e.seq)
		FROM runs r
		LEFT JOIN events e ON e.run_id = r.id
		GROUP BY r.id, r.label
		ORDER BY r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var rs RunSummary
		if err := rows.Scan(&rs.ID, &rs.Label, &rs.Events); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns the events of a run ordered by seq.
//
// Returns an empty slice (not nil) for an unknown run.
func (j *Journal) ReadRun(ctx context.Context, runID string) ([]runtime.Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, tick, kind, context, handle, behavior, instance, slot, state, detail
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []runtime.Event{}
	for rows.Next() {
		var (
			ev       runtime.Event
			kind     string
			handle   int64
			instance int64
		)
		if err := rows.Scan(
			&ev.Seq,
			&ev.Tick,
			&kind,
			&ev.Context,
			&handle,
			&ev.Behavior,
			&instance,
			&ev.Slot,
			&ev.State,
			&ev.Detail,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = runtime.EventKind(kind)
		ev.Handle = runtime.Handle(handle)
		ev.Instance = runtime.InstanceID(instance)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// CountEvents returns how many events of kind a run holds.
func (j *Journal) CountEvents(ctx context.Context, runID string, kind runtime.EventKind) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE run_id = ? AND kind = ?
	`, runID, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
