package meta

import "github.com/roach88/sdb/internal/behavior"

// ContextInfo describes a registered context type.
type ContextInfo struct {
	Name   string   `json:"name"`
	States []string `json:"states"`
}

// SlotInfo describes one declared slot.
type SlotInfo struct {
	Name        string `json:"name"`
	Context     string `json:"context"`
	Fulfillment string `json:"fulfillment"`
	Binding     string `json:"binding"`
}

// HandlerInfo describes one change binding. State is empty for
// context-level bindings.
type HandlerInfo struct {
	Slot  string `json:"slot"`
	State string `json:"state,omitempty"`
	Count int    `json:"count"`
}

// BehaviorInfo describes a registered behavior type.
type BehaviorInfo struct {
	Name     string        `json:"name"`
	Eager    bool          `json:"eager"`
	Slots    []SlotInfo    `json:"slots"`
	Handlers []HandlerInfo `json:"handlers,omitempty"`
	Teardown int           `json:"teardown,omitempty"`
}

// Description is the full registry shape, in registration order.
type Description struct {
	Contexts  []ContextInfo  `json:"contexts"`
	Behaviors []BehaviorInfo `json:"behaviors"`
}

// Describe returns the registry shape. Behaviors without Existing slots are
// marked eager: the runtime instantiates them during Initialize.
func (r *Registry) Describe() Description {
	var d Description
	for _, t := range r.ctxOrder {
		e := r.contexts[t]
		info := ContextInfo{Name: e.name, States: []string{}}
		for _, s := range e.states {
			info.States = append(info.States, s.Name)
		}
		d.Contexts = append(d.Contexts, info)
	}

	for _, t := range r.behOrder {
		e := r.behaviors[t]
		info := BehaviorInfo{Name: e.name, Eager: true, Teardown: len(e.onDestroy)}
		for _, s := range e.slots {
			if s.Fulfillment == behavior.Existing {
				info.Eager = false
			}
			info.Slots = append(info.Slots, SlotInfo{
				Name:        s.Name,
				Context:     r.Name(s.Type),
				Fulfillment: s.Fulfillment.String(),
				Binding:     s.Binding.String(),
			})
		}
		for _, k := range e.keys {
			info.Handlers = append(info.Handlers, HandlerInfo{Slot: k.slot, State: k.state, Count: len(e.onChange[k])})
		}
		d.Behaviors = append(d.Behaviors, info)
	}
	return d
}
