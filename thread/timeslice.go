package thread

import "sync/atomic"

// defaultQuantumNs is the time quantum, in nanoseconds, granted to a thread
// at the reference priority (128), per spec §3 "default 1 ms at priority
// 128".
const defaultQuantumNs = 1_000_000

// referencePriority is the priority at which a thread receives exactly
// defaultQuantumNs and weight 1024 (spec §4.5's weight formula uses 1024 as
// its numerator; referencePriority is where priorityWeight(p) == 1024).
const referencePriority = 128

// priorityWeight maps a priority (0-255) onto the divisor used by the
// weight formula in spec §4.5: weight = 1024 / priorityWeight(priority).
// It grows linearly with priority so that weight, and therefore the
// quantum derived from it, shrinks as priority rises - a higher-priority
// thread accrues vruntime more slowly and is granted a shorter quantum,
// both of which make it more likely to be preferred by the scheduler.
func priorityWeight(priority uint8) uint32 {
	return uint32(priority) + 1
}

// weight returns the spec §4.5 vruntime weight for priority, scaled by
// 1024 so it stays exact in integer arithmetic (weight(128) == 1024).
func weight(priority uint8) uint64 {
	return (1024 * uint64(referencePriority+1)) / uint64(priorityWeight(priority))
}

// quantumFor derives a thread's time quantum from its priority: the
// reference priority gets defaultQuantumNs, and the quantum scales with
// weight so higher-priority threads get proportionally shorter slices
// (spec §3's "quantum_ns... derived from priority").
func quantumFor(priority uint8) uint64 {
	refWeight := weight(referencePriority)
	return defaultQuantumNs * weight(priority) / refWeight
}

// TimeSlice is the fair-share accounting state attached to every Thread
// (spec §3). vruntime only grows while the owning thread is Running; a
// lower priority grows it faster, per priorityWeight above.
type TimeSlice struct {
	quantumNs  atomic.Uint64
	vruntime   atomic.Uint64
	sliceStart atomic.Uint64 // monotonic ns timestamp of the last schedule-in
	priority   atomic.Uint32 // mirrors the owning Thread's priority, for weight lookups
}

// NewTimeSlice returns a TimeSlice configured for the given starting
// priority.
func NewTimeSlice(priority uint8) *TimeSlice {
	ts := &TimeSlice{}
	ts.priority.Store(uint32(priority))
	ts.quantumNs.Store(quantumFor(priority))
	return ts
}

// SetPriority recomputes the quantum for a new priority. Does not reset
// vruntime: a priority change takes effect on the thread's next slice.
func (ts *TimeSlice) SetPriority(priority uint8) {
	ts.priority.Store(uint32(priority))
	ts.quantumNs.Store(quantumFor(priority))
}

// SetQuantum overrides the derived quantum with an explicit duration in
// nanoseconds (SPEC_FULL.md's ThreadBuilder.WithQuantum supplement).
func (ts *TimeSlice) SetQuantum(ns uint64) {
	ts.quantumNs.Store(ns)
}

// QuantumNs returns the current quantum in nanoseconds.
func (ts *TimeSlice) QuantumNs() uint64 {
	return ts.quantumNs.Load()
}

// Vruntime returns the accumulated virtual runtime in nanoseconds.
func (ts *TimeSlice) Vruntime() uint64 {
	return ts.vruntime.Load()
}

// StartSlice stamps the slice-start timestamp; called when the owning
// thread transitions Ready -> Running.
func (ts *TimeSlice) StartSlice(nowNs uint64) {
	ts.sliceStart.Store(nowNs)
}

// CloseSlice closes the running slice: it computes the elapsed time since
// StartSlice and adds delta*weight(priority) to vruntime, per spec §4.5
// step 1. Returns the elapsed wall-clock delta in nanoseconds.
func (ts *TimeSlice) CloseSlice(nowNs uint64) uint64 {
	start := ts.sliceStart.Load()
	var delta uint64
	if nowNs > start {
		delta = nowNs - start
	}
	w := weight(uint8(ts.priority.Load()))
	ts.vruntime.Add(delta * w / 1024)
	return delta
}

// ProjectedVruntime returns what Vruntime would become if CloseSlice(nowNs)
// were called right now, without mutating any state. Used by the
// scheduler's preemption decision to evaluate vruntime divergence ahead of
// actually committing the transition.
func (ts *TimeSlice) ProjectedVruntime(nowNs uint64) uint64 {
	start := ts.sliceStart.Load()
	var delta uint64
	if nowNs > start {
		delta = nowNs - start
	}
	w := weight(uint8(ts.priority.Load()))
	return ts.vruntime.Load() + delta*w/1024
}

// Expired reports whether the slice that began at StartSlice has run for
// at least QuantumNs as of nowNs.
func (ts *TimeSlice) Expired(nowNs uint64) bool {
	start := ts.sliceStart.Load()
	if nowNs <= start {
		return false
	}
	return nowNs-start >= ts.quantumNs.Load()
}
