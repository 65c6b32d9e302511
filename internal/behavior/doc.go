// Package behavior implements dependency matching for behaviors.
//
// A behavior declares named Slots. Existing slots must be filled from
// contexts that are already contextualized; SelfCreated slots are filled by
// the behavior's own assemble function. A Factory keeps an inventory of
// available contexts per required type, computes how many complete
// dependency sets can be assembled, and assembles them into Instances.
//
// Counting rule: for every distinct required type T,
//
//	sets(T) = available(T) / slots requiring T
//
// and the factory's pending count is the minimum over all T. A factory with
// no Existing slots reports Unbounded and assembles exactly one instance per
// Process call.
package behavior
