// Package testutil holds deterministic helpers for scenario runs and tests.
package testutil

import "strings"

// DefaultRunID is used when a scenario names no run ID.
const DefaultRunID = "test-run-default"

// FixedRunIDGenerator returns the same run ID every time, so a scenario
// journals under a predictable key.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id. Surrounding space is
// trimmed; an empty id means DefaultRunID.
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	id = strings.TrimSpace(id)
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run ID.
//
// Implements journal.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
