package runtime

// EventKind distinguishes trace events.
type EventKind string

const (
	EventContextualized   EventKind = "contextualized"
	EventDecontextualized EventKind = "decontextualized"
	EventInstantiated     EventKind = "instantiated"
	EventDestroyed        EventKind = "destroyed"
	EventChanged          EventKind = "changed"
	EventHandled          EventKind = "handled"
	EventTick             EventKind = "tick"
)

// Event is one traced runtime step. Fields that do not apply to a kind are
// left zero.
type Event struct {
	Seq      int64      `json:"seq"`
	Tick     int64      `json:"tick"`
	Kind     EventKind  `json:"kind"`
	Context  string     `json:"context,omitempty"`
	Handle   Handle     `json:"handle,omitempty"`
	Behavior string     `json:"behavior,omitempty"`
	Instance InstanceID `json:"instance,omitempty"`
	Slot     string     `json:"slot,omitempty"`
	State    string     `json:"state,omitempty"`
	Detail   string     `json:"detail,omitempty"`
}

// Tracer receives every traced event, in seq order, synchronously.
// Implementations must not call back into the runtime.
type Tracer interface {
	Record(ev Event)
}

type nopTracer struct{}

func (nopTracer) Record(Event) {}

// MemoryTracer keeps events in memory. Used by the harness and tests.
type MemoryTracer struct {
	events []Event
}

// NewMemoryTracer creates an empty tracer.
func NewMemoryTracer() *MemoryTracer {
	return &MemoryTracer{}
}

// Record implements Tracer.
func (m *MemoryTracer) Record(ev Event) {
	m.events = append(m.events, ev)
}

// Events returns a copy of the recorded events.
func (m *MemoryTracer) Events() []Event {
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Count returns how many events of kind were recorded. If behavior is not
// empty only events for that behavior are counted.
func (m *MemoryTracer) Count(kind EventKind, behavior string) int {
	n := 0
	for _, ev := range m.events {
		if ev.Kind != kind {
			continue
		}
		if behavior != "" && ev.Behavior != behavior {
			continue
		}
		n++
	}
	return n
}

// Reset drops every recorded event.
func (m *MemoryTracer) Reset() {
	m.events = nil
}
