package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted chat session with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides the chat configuration defaults.
	Config map[string]any `yaml:"config,omitempty"`

	// Steps drive the chat.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed journal run ID.
	RunID string `yaml:"run_id,omitempty"`
}

// Step is exactly one of input, tick or settle.
type Step struct {
	// Input is a line to submit. A pointer so that "" can be submitted.
	Input *string `yaml:"input,omitempty"`

	// Tick runs this many Update calls.
	Tick int `yaml:"tick,omitempty"`

	// Settle runs Update until nothing changes.
	Settle bool `yaml:"settle,omitempty"`
}

// Assertion validates the final state of a run.
type Assertion struct {
	// Type selects the assertion; see the package documentation.
	Type string `yaml:"type"`

	// Line is the expected line (transcript_contains).
	Line string `yaml:"line,omitempty"`

	// Lines is the expected transcript (transcript_equals).
	Lines []string `yaml:"lines,omitempty"`

	// Behavior names a behavior (instance_count, event_count).
	Behavior string `yaml:"behavior,omitempty"`

	// Kind is a trace event kind (event_count).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number (instance_count, event_count, ticks).
	Count int `yaml:"count,omitempty"`

	// Expect is the expected flag (closed).
	Expect bool `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTranscriptContains = "transcript_contains"
	AssertTranscriptEquals   = "transcript_equals"
	AssertInstanceCount      = "instance_count"
	AssertEventCount         = "event_count"
	AssertTicks              = "ticks"
	AssertClosed             = "closed"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Input != nil {
			set++
		}
		if step.Tick != 0 {
			set++
		}
		if step.Settle {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of input, tick, settle is required", i)
		}
		if step.Tick < 0 {
			return fmt.Errorf("steps[%d]: tick must be positive", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTranscriptContains:
		if a.Line == "" {
			return fmt.Errorf("assertions[%d]: line is required for transcript_contains", index)
		}
	case AssertTranscriptEquals:
		if a.Lines == nil {
			return fmt.Errorf("assertions[%d]: lines is required for transcript_equals", index)
		}
	case AssertInstanceCount:
		if a.Behavior == "" {
			return fmt.Errorf("assertions[%d]: behavior is required for instance_count", index)
		}
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_count", index)
		}
	case AssertTicks, AssertClosed:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
