// Package harness runs chat scenarios against a real runtime.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: echo_round_trip
//	description: "A plain line is echoed one tick later"
//	config:
//	  user: ana
//	  bot: { mode: shout }
//	steps:
//	  - input: "hello"
//	  - settle: true
//	  - input: "/quit"
//	  - tick: 1
//	assertions:
//	  - type: transcript_contains
//	    line: "<bot> HELLO"
//	  - type: instance_count
//	    behavior: Bot
//	    count: 1
//
// config is unified with the chat's CUE schema, so it is validated and
// defaulted exactly like a config file.
//
// # Steps
//
//   - input: submit one line (not processed until a tick)
//   - tick: run N Update calls
//   - settle: run Update until nothing changes
//
// # Assertion Types
//
//   - transcript_contains: a retained transcript line equals line
//   - transcript_equals: the retained transcript equals lines
//   - instance_count: behavior has count live instances
//   - event_count: count trace events of kind (optionally for behavior)
//   - ticks: the steps ran count ticks that had changes
//   - closed: the user quit (expect: true) or not
//
// # Deterministic Runs
//
// Every scenario runs in a fresh in-memory journal under a fixed run ID
// (scenario run_id, or testutil.DefaultRunID). Trace events are journaled
// and read back for event_count, so repeated runs yield identical results
// for golden comparison.
package harness
