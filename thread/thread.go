package thread

import (
	"sync"
	"sync/atomic"

	"github.com/NathanVRyver/preemptive-threads/arch"
	"github.com/NathanVRyver/preemptive-threads/stackpool"
)

// Thread is a schedulable unit of execution (spec §3). It is shared between
// two holders - the ready/running lifecycle reference and a JoinHandle -
// via an internal reference count;
// the backing stack is released to its pool when the count drops to zero,
// mirroring the RAII release the original implementation performs on the
// last Arc drop.
type Thread struct {
	id       ThreadId
	state    atomic.Uint32 // ThreadState
	priority atomic.Uint32

	stack *stackpool.Stack
	ctx   *arch.SavedContext

	timeSlice *TimeSlice

	cpuAffinity atomic.Uint64 // bitmask, 0 = no restriction
	preemptible atomic.Bool
	niceValue   atomic.Int32 // holds an int8 range; atomic.Int8 does not exist

	scheduledCPU atomic.Int32 // set by the kernel's dispatch loop on every switch-in

	name      atomic.Pointer[string]
	debugInfo atomic.Bool

	pool *stackpool.Pool
	refs atomic.Int32

	finishOnce sync.Once
	finishedCh chan struct{}

	resultMu sync.Mutex
	result   any
	joinErr  error // set on fatal failure (e.g. stack overflow), spec §4.6
}

// NewThread constructs a Thread in the Ready state, owning stack and
// backed by pool for eventual release. ctx must already be initialized via
// arch.ContextSwitcher.InitStack before the thread can be switched into.
func NewThread(id ThreadId, priority uint8, stack *stackpool.Stack, ctx *arch.SavedContext, pool *stackpool.Pool) *Thread {
	t := &Thread{
		stack:      stack,
		ctx:        ctx,
		timeSlice:  NewTimeSlice(priority),
		pool:       pool,
		finishedCh: make(chan struct{}),
	}
	t.id = id
	t.state.Store(uint32(Ready))
	t.priority.Store(uint32(priority))
	t.preemptible.Store(true)
	t.refs.Store(1)
	return t
}

// Id returns the thread's unique identifier.
func (t *Thread) Id() ThreadId { return t.id }

// State returns the thread's current execution state.
func (t *Thread) State() ThreadState { return ThreadState(t.state.Load()) }

func (t *Thread) setState(s ThreadState) { t.state.Store(uint32(s)) }

// Priority returns the thread's current priority.
func (t *Thread) Priority() uint8 { return uint8(t.priority.Load()) }

// SetPriority updates the thread's priority and its derived time quantum.
func (t *Thread) SetPriority(p uint8) {
	t.priority.Store(uint32(p))
	t.timeSlice.SetPriority(p)
}

// IsRunnable reports whether the thread is Ready or Running.
func (t *Thread) IsRunnable() bool { return t.State().IsRunnable() }

// Context returns the thread's saved architecture context, for use by the
// scheduler's context-switch call sites.
func (t *Thread) Context() *arch.SavedContext { return t.ctx }

// Stack returns the thread's owned stack.
func (t *Thread) Stack() *stackpool.Stack { return t.stack }

// TimeSlice returns the thread's fair-share accounting state.
func (t *Thread) TimeSlice() *TimeSlice { return t.timeSlice }

// CheckStackIntegrity reports whether the thread's stack canary is still
// intact. Called by the kernel on every context-switch-out (spec §4.6
// failure semantics).
func (t *Thread) CheckStackIntegrity() bool {
	return t.stack.CheckCanary()
}

// SetCPUAffinity sets the CPU affinity bitmask (0 means unrestricted).
func (t *Thread) SetCPUAffinity(mask uint64) { t.cpuAffinity.Store(mask) }

// CPUAffinity returns the CPU affinity bitmask.
func (t *Thread) CPUAffinity() uint64 { return t.cpuAffinity.Load() }

// SetPreemptible controls whether the preemption decision may evict this
// thread on quantum expiry or vruntime divergence (spec §4.5).
func (t *Thread) SetPreemptible(v bool) { t.preemptible.Store(v) }

// Preemptible reports whether the thread may be involuntarily preempted.
func (t *Thread) Preemptible() bool { return t.preemptible.Load() }

// SetScheduledCPU records which CPU's dispatch loop most recently switched
// this thread in. The kernel package calls it right before a context
// switch; the thread's own entry goroutine reads it back via ThreadContext
// to address cooperative Yield/Tick calls at the right per-CPU state,
// since goroutines have no ambient "current CPU" the way a real ISR does.
func (t *Thread) SetScheduledCPU(cpu int) { t.scheduledCPU.Store(int32(cpu)) }

// ScheduledCPU returns the CPU most recently recorded by SetScheduledCPU.
func (t *Thread) ScheduledCPU() int { return int(t.scheduledCPU.Load()) }

// SetNice sets the supplemented nice value (-20..19, Unix convention),
// adjusted priority hint exposed for callers that prefer nice-style
// tuning over raw priority (SPEC_FULL.md ThreadBuilder.Nice supplement).
func (t *Thread) SetNice(v int8) { t.niceValue.Store(int32(v)) }

// Nice returns the supplemented nice value.
func (t *Thread) Nice() int8 { return int8(t.niceValue.Load()) }

// SetName sets the thread's debug name.
func (t *Thread) SetName(name string) { t.name.Store(&name) }

// Name returns the thread's debug name, or "" if unset.
func (t *Thread) Name() string {
	p := t.name.Load()
	if p == nil {
		return ""
	}
	return *p
}

// SetDebugInfo toggles whether debug information is retained for this
// thread.
func (t *Thread) SetDebugInfo(enabled bool) { t.debugInfo.Store(enabled) }

// DebugInfoEnabled reports whether debug information is enabled.
func (t *Thread) DebugInfoEnabled() bool { return t.debugInfo.Load() }

// retain increments the shared reference count. Called when a JoinHandle
// is constructed for this thread; ReadyRef/RunningRef share the single
// reference the thread is created with.
func (t *Thread) retain() { t.refs.Add(1) }

// release decrements the shared reference count, releasing the stack back
// to its pool when the count reaches zero.
func (t *Thread) release() {
	if t.refs.Add(-1) == 0 && t.pool != nil {
		_ = t.pool.Deallocate(t.stack)
	}
}

// finish transitions the thread to Finished, records its join outcome, and
// wakes any blocked joiners. Safe to call at most once per thread; later
// calls are no-ops.
func (t *Thread) finish(result any, err error) {
	t.finishOnce.Do(func() {
		t.resultMu.Lock()
		t.result, t.joinErr = result, err
		t.resultMu.Unlock()
		t.setState(Finished)
		close(t.finishedCh)
	})
}

// outcome returns the thread's join result, blocking until Finished.
// Shared by JoinHandle.Join/JoinTimeout.
func (t *Thread) outcome() (any, error) {
	<-t.finishedCh
	t.resultMu.Lock()
	defer t.resultMu.Unlock()
	return t.result, t.joinErr
}
