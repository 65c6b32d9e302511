package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sdb/internal/journal"
	"github.com/roach88/sdb/internal/runtime"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Run      string // optional; lists runs when empty
	Kind     string // optional; filter events to one kind
}

// TraceResult holds the events of one run.
type TraceResult struct {
	Run    string          `json:"run"`
	Events []runtime.Event `json:"events"`
	Stats  TraceStats      `json:"stats"`
}

// TraceStats summarises a run.
type TraceStats struct {
	Events int                       `json:"events"`
	Ticks  int64                     `json:"ticks"`
	Kinds  map[runtime.EventKind]int `json:"kinds"`
}

var eventKinds = []runtime.EventKind{
	runtime.EventContextualized,
	runtime.EventDecontextualized,
	runtime.EventInstantiated,
	runtime.EventDestroyed,
	runtime.EventChanged,
	runtime.EventHandled,
	runtime.EventTick,
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect runs recorded in a journal",
		Long: `Inspect runtime traces recorded with "sdb chat --trace-db".

Without --run, lists the recorded runs and their event counts. With
--run, prints that run's events in order: contexts arriving and leaving,
behaviors assembled and destroyed, state changes and the handlers they
reached, one line per event.

Examples:
  sdb trace --db ./sdb.db
  sdb trace --db ./sdb.db --run 0192...
  sdb trace --db ./sdb.db --run 0192... --kind handled
  sdb trace --db ./sdb.db --run 0192... --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run ID to print")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only print events of this kind")

	return cmd
}

func runTrace(cmd *cobra.Command, opts *TraceOptions) error {
	out := opts.output(cmd)
	ctx := cmd.Context()

	kind := runtime.EventKind(opts.Kind)
	if opts.Kind != "" && !slices.Contains(eventKinds, kind) {
		return out.Fail(ExitCommandError, CodeJournal, fmt.Sprintf("unknown event kind %q", opts.Kind), nil)
	}
	j, err := journal.OpenReadOnly(opts.Database)
	if err != nil {
		return out.Fail(ExitCommandError, CodeJournal, "failed to open journal", err)
	}
	defer j.Close()

	if opts.Run == "" {
		runs, err := j.ListRuns(ctx)
		if err != nil {
			return out.Fail(ExitCommandError, CodeJournal, "failed to list runs", err)
		}
		if out.json() {
			return out.Encode(Response{Status: "ok", Data: runs})
		}
		writeRunsText(cmd.OutOrStdout(), runs)
		return nil
	}

	events, err := j.ReadRun(ctx, opts.Run)
	if err != nil {
		return out.Fail(ExitCommandError, CodeJournal, "failed to read run", err)
	}
	if len(events) == 0 {
		return out.Fail(ExitCommandError, CodeJournal, fmt.Sprintf("no events for run %s", opts.Run), nil)
	}

	result := TraceResult{Run: opts.Run, Events: []runtime.Event{}, Stats: TraceStats{Kinds: map[runtime.EventKind]int{}}}
	for _, ev := range events {
		result.Stats.Kinds[ev.Kind]++
		result.Stats.Ticks = max(result.Stats.Ticks, ev.Tick)
		if kind == "" || ev.Kind == kind {
			result.Events = append(result.Events, ev)
		}
	}
	result.Stats.Events = len(events)

	if out.json() {
		return out.Encode(Response{Status: "ok", Data: result, RunID: opts.Run})
	}
	writeTraceText(cmd.OutOrStdout(), result)
	return nil
}

func writeRunsText(w io.Writer, runs []journal.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-8s %d events\n", r.ID, r.Label, r.Events)
	}
}

func writeTraceText(w io.Writer, result TraceResult) {
	fmt.Fprintf(w, "Run: %s\n\n", result.Run)
	for _, ev := range result.Events {
		fmt.Fprintf(w, "[%d] t%d %-16s %s\n", ev.Seq, ev.Tick, ev.Kind, describeEvent(ev))
	}

	fmt.Fprintf(w, "\n%d events over %d ticks", result.Stats.Events, result.Stats.Ticks)
	var parts []string
	for _, k := range eventKinds {
		if n := result.Stats.Kinds[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, n))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, " (%s)", strings.Join(parts, " "))
	}
	fmt.Fprintln(w)
}

func describeEvent(ev runtime.Event) string {
	var b strings.Builder
	if ev.Context != "" {
		fmt.Fprintf(&b, "%s#%d", ev.Context, ev.Handle)
	}
	if ev.Behavior != "" {
		if b.Len() > 0 {
			b.WriteString(" -> ")
		}
		fmt.Fprintf(&b, "%s#%d", ev.Behavior, ev.Instance)
	}
	if ev.Slot != "" {
		fmt.Fprintf(&b, " %s", ev.Slot)
		if ev.State != "" {
			fmt.Fprintf(&b, ".%s", ev.State)
		}
	} else if ev.State != "" {
		fmt.Fprintf(&b, " .%s", ev.State)
	}
	if ev.Detail != "" {
		fmt.Fprintf(&b, " (%s)", ev.Detail)
	}
	return b.String()
}
