package thread

// ReadyRef and RunningRef are typestate wrappers around a shared Thread
// reference (spec §3). Converting a ReadyRef to a RunningRef (Schedule) or
// back (Preempt/Yield) takes the value by its typestate type rather than a
// *Thread, so a caller holding a ReadyRef simply has no Preempt/Yield
// method to call, and vice versa - an invalid transition is a compile
// error, not a runtime assertion. Both wrappers carry the single
// "lifecycle strand" reference a Thread is created with; that reference is
// released exactly once, in RunningRef.Finish.
type ReadyRef struct {
	t *Thread
}

// RunningRef is the running-state counterpart to ReadyRef. Scheduler code
// must hold at most one RunningRef per CPU at a time; nothing in the type
// itself prevents a second one from being constructed, but every
// constructor in this package that can produce one is only ever called
// from the single-threaded-per-CPU scheduler decision path.
type RunningRef struct {
	t *Thread
}

// NewReadyRef wraps t as a ReadyRef without touching its reference count;
// it is for callers (the kernel's spawn path, a Wake) that already hold
// the thread's lifecycle-strand reference.
func NewReadyRef(t *Thread) ReadyRef {
	t.setState(Ready)
	return ReadyRef{t: t}
}

// Thread returns the wrapped thread.
func (r ReadyRef) Thread() *Thread { return r.t }

// Id returns the wrapped thread's identifier.
func (r ReadyRef) Id() ThreadId { return r.t.Id() }

// Priority returns the wrapped thread's priority, for ready-structure
// placement decisions.
func (r ReadyRef) Priority() uint8 { return r.t.Priority() }

// Schedule transitions Ready -> Running: sets state=Running and stamps
// slice_start, per spec §3's ReadyRef -> RunningRef rule.
func (r ReadyRef) Schedule(nowNs uint64) RunningRef {
	r.t.setState(Running)
	r.t.timeSlice.StartSlice(nowNs)
	return RunningRef{t: r.t}
}

// Thread returns the wrapped thread.
func (r RunningRef) Thread() *Thread { return r.t }

// Id returns the wrapped thread's identifier.
func (r RunningRef) Id() ThreadId { return r.t.Id() }

// Priority returns the wrapped thread's priority.
func (r RunningRef) Priority() uint8 { return r.t.Priority() }

// Preempt closes the running slice and converts back to Ready after an
// involuntary preemption (spec §3's RunningRef -> ReadyRef rule).
func (r RunningRef) Preempt(nowNs uint64) ReadyRef {
	r.t.timeSlice.CloseSlice(nowNs)
	r.t.setState(Ready)
	return ReadyRef{t: r.t}
}

// Yield performs the same bookkeeping as Preempt for a voluntary yield.
// Kept as a distinct method so call sites read as the operation they
// perform, per spec §4.5's on_yield being "same as tick but unconditional".
func (r RunningRef) Yield(nowNs uint64) ReadyRef {
	return r.Preempt(nowNs)
}

// Block transitions Running -> Blocked. The lifecycle-strand reference is
// retained by the caller (the kernel's wait path), which must later call
// Wake to resume scheduling this thread.
func (r RunningRef) Block(nowNs uint64) {
	r.t.timeSlice.CloseSlice(nowNs)
	r.t.setState(Blocked)
}

// Wake transitions a Blocked thread back to Ready, returning a fresh
// ReadyRef for re-enqueueing.
func Wake(t *Thread) ReadyRef {
	return NewReadyRef(t)
}

// Finish transitions Running -> Finished, records the join outcome, wakes
// any blocked joiners, and releases the lifecycle-strand reference.
func (r RunningRef) Finish(result any, err error) {
	r.t.finish(result, err)
	r.t.release()
}
