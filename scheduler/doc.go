// Package scheduler implements the pick-next and preemption-decision logic
// of spec §4.5 on top of the ready package's lock-free structures: a
// cache-local fast path through each CPU's local queue, a fall-through to
// the global priority structure, and a work-stealing fallback before a CPU
// goes idle.
package scheduler
