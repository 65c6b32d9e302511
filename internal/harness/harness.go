package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sdb/internal/chat"
	"github.com/roach88/sdb/internal/config"
	"github.com/roach88/sdb/internal/journal"
	"github.com/roach88/sdb/internal/runtime"
	"github.com/roach88/sdb/internal/testutil"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step ran and every assertion held.
	Pass bool `json:"pass"`

	// RunID is the journal run the trace was recorded under.
	RunID string `json:"run_id"`

	// Transcript is the retained transcript after the last step.
	Transcript []string `json:"transcript"`

	// Output is everything the Display behavior wrote.
	Output string `json:"output"`

	// Ticks counts the ticks with changes run by the steps.
	Ticks int `json:"ticks"`

	// Closed reports whether the user quit.
	Closed bool `json:"closed"`

	// Instances counts live instances per behavior.
	Instances map[string]int `json:"instances"`

	// Events is the journaled trace, in seq order.
	Events []runtime.Event `json:"events"`

	// Errors contains step and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory journal. Step failures (a line
// submitted after /quit, an operation error, a tick limit) are recorded in
// the result and stop the steps; assertions are still evaluated. The
// returned error is reserved for setup failures.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, err
	}

	j, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	runID := testutil.NewFixedRunIDGenerator(scenario.RunID).Generate()
	rec := j.NewRecorder(runID, scenario.Name)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var out bytes.Buffer
	app, err := chat.New(cfg, &out, runtime.WithLogger(logger), runtime.WithTracer(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to start chat: %w", err)
	}

	result := &Result{Pass: true, RunID: runID, Errors: []string{}}
	if err := executeSteps(app, scenario.Steps, result); err != nil {
		result.AddError(err.Error())
	}

	if err := rec.Flush(ctx); err != nil {
		return nil, fmt.Errorf("failed to flush trace: %w", err)
	}
	events, err := j.ReadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	result.Events = events
	result.Transcript = app.Transcript()
	result.Output = out.String()
	result.Closed = app.Closed()
	result.Instances = make(map[string]int)
	for _, inst := range app.Runtime().Instances() {
		result.Instances[inst.Behavior]++
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// scenarioConfig validates the scenario's config overrides against the
// chat schema. JSON is valid CUE.
func scenarioConfig(s *Scenario) (config.Config, error) {
	if len(s.Config) == 0 {
		return config.Default(), nil
	}
	data, err := json.Marshal(s.Config)
	if err != nil {
		return config.Config{}, fmt.Errorf("scenario %s: config: %w", s.Name, err)
	}
	cfg, err := config.Parse(data, s.Name+".config")
	if err != nil {
		return config.Config{}, fmt.Errorf("scenario %s: config: %w", s.Name, err)
	}
	return cfg, nil
}

// executeSteps runs the steps in order and stops at the first failure.
func executeSteps(app *chat.App, steps []Step, result *Result) error {
	for i, step := range steps {
		switch {
		case step.Input != nil:
			if err := app.Submit(*step.Input); err != nil {
				return fmt.Errorf("steps[%d]: input %q: %w", i, *step.Input, err)
			}
		case step.Tick > 0:
			for range step.Tick {
				had, err := app.Runtime().Update()
				if had {
					result.Ticks++
				}
				if err != nil {
					return fmt.Errorf("steps[%d]: tick: %w", i, err)
				}
			}
		case step.Settle:
			n, err := app.Settle()
			result.Ticks += n
			if err != nil {
				var stab *runtime.StabilizationError
				if errors.As(err, &stab) {
					return fmt.Errorf("steps[%d]: settle did not stabilize: %w", i, err)
				}
				return fmt.Errorf("steps[%d]: settle: %w", i, err)
			}
		}
	}
	return nil
}
