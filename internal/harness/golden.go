package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden-file view of a run. Trace events are not part
// of it; assert on them with event_count.
type Snapshot struct {
	Scenario   string         `json:"scenario"`
	Pass       bool           `json:"pass"`
	Ticks      int            `json:"ticks"`
	Closed     bool           `json:"closed"`
	Instances  map[string]int `json:"instances"`
	Transcript []string       `json:"transcript"`
}

// MarshalSnapshot renders a result as indented JSON with sorted map keys
// and no HTML escaping ("<bot>" stays readable).
func MarshalSnapshot(name string, r *Result) ([]byte, error) {
	snap := Snapshot{
		Scenario:   name,
		Pass:       r.Pass,
		Ticks:      r.Ticks,
		Closed:     r.Closed,
		Instances:  r.Instances,
		Transcript: r.Transcript,
	}
	if snap.Transcript == nil {
		snap.Transcript = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
