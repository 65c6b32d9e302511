package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sdb/internal/runtime"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type       string   // Assertion type for categorization
	Expected   string   // Human-readable expected outcome
	Actual     string   // Human-readable actual outcome
	Transcript []string // Final transcript for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nTranscript:\n")
	for i, line := range e.Transcript {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. All assertions run; failures do not short-circuit.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(r *Result, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Transcript: r.Transcript}
	}

	switch a.Type {
	case AssertTranscriptContains:
		if !slices.Contains(r.Transcript, a.Line) {
			return fail(fmt.Sprintf("line %q", a.Line), "not in transcript")
		}
	case AssertTranscriptEquals:
		if !slices.Equal(r.Transcript, a.Lines) {
			return fail(fmt.Sprintf("%q", a.Lines), fmt.Sprintf("%q", r.Transcript))
		}
	case AssertInstanceCount:
		if got := r.Instances[a.Behavior]; got != a.Count {
			return fail(fmt.Sprintf("%d %s instances", a.Count, a.Behavior), fmt.Sprintf("%d", got))
		}
	case AssertEventCount:
		if got := countEvents(r.Events, runtime.EventKind(a.Kind), a.Behavior); got != a.Count {
			what := a.Kind
			if a.Behavior != "" {
				what += " " + a.Behavior
			}
			return fail(fmt.Sprintf("%d %s events", a.Count, what), fmt.Sprintf("%d", got))
		}
	case AssertTicks:
		if r.Ticks != a.Count {
			return fail(fmt.Sprintf("%d ticks", a.Count), fmt.Sprintf("%d", r.Ticks))
		}
	case AssertClosed:
		if r.Closed != a.Expect {
			return fail(fmt.Sprintf("closed=%t", a.Expect), fmt.Sprintf("closed=%t", r.Closed))
		}
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
	return nil
}

func countEvents(events []runtime.Event, kind runtime.EventKind, behavior string) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind && (behavior == "" || ev.Behavior == behavior) {
			n++
		}
	}
	return n
}
