package kernel

import (
	"sync/atomic"

	"github.com/NathanVRyver/preemptive-threads/arch"
	"github.com/NathanVRyver/preemptive-threads/internal/spinwait"
	"github.com/NathanVRyver/preemptive-threads/thread"
)

// cpuState is the per-CPU state the original design keeps as a single
// spin-locked current_thread field, split one-per-CPU to match spec §5's
// parallel scheduling model (multiple CPUs, each running exactly one
// thread at a time).
type cpuState struct {
	// running is nil exactly when this CPU is idle - between a thread
	// switching out and its dispatch loop picking the next one.
	running atomic.Pointer[thread.RunningRef]

	// inHandler is the hard per-CPU timer-ISR reentry guard (spec §7):
	// nested ticks are dropped rather than queued. Distinct from
	// preemptCounter, which is an advisory scheduler-consulted flag, not a
	// reentry guard (SPEC_FULL.md REDESIGN #6).
	inHandler atomic.Bool

	// preemptPending is set by HandleTimerInterrupt when it decides the
	// running thread should yield its slice, and cleared by that thread's
	// own ThreadContext.Tick call, which performs the actual switch.
	preemptPending atomic.Bool

	// preemptCounter is timer.PreemptGuard's per-CPU nesting counter.
	preemptCounter atomic.Int32

	// idleCtx is this CPU's dispatch-loop context: the "thread" that runs
	// when nothing else is ready, and the switch target every other
	// context-switch-out call on this CPU hands control back to.
	idleCtx arch.SavedContext
}

// cpuLoop is cpu's dispatch loop: pick the next ready thread, schedule it
// in, and switch to it. Control returns here only when that thread yields,
// ticks into a preemption, or finishes, at which point the loop picks
// again - possibly the same thread, if nothing else was runnable.
func (k *Kernel) cpuLoop(cpu int) {
	cs := &k.cpus[cpu]
	backoff := spinwait.New()
	for !k.shuttingDown.Load() {
		rr, ok := k.sched.PickNext(cpu)
		if !ok {
			backoff.Wait()
			continue
		}
		backoff.Reset()

		now := k.nowNs()
		running := rr.Schedule(now)
		running.Thread().SetScheduledCPU(cpu)
		cs.running.Store(&running)
		k.sched.MarkRunning(cpu, running.Thread())

		k.switcher.FirstSwitch(&cs.idleCtx, running.Thread().Context())
	}
}

// placeReady enqueues rr for scheduling. A thread with an explicit CPU
// affinity mask always goes to the lowest set bit's local queue; otherwise
// it goes to preferredCPU's local queue if given (the cache-local choice
// for a thread switching out on that CPU), or the global structure if not
// (the placement Spawn uses, since a freshly spawned thread has no
// meaningful "current" CPU yet).
func (k *Kernel) placeReady(rr thread.ReadyRef, preferredCPU int) {
	th := rr.Thread()
	if mask := th.CPUAffinity(); mask != 0 {
		for i := 0; i < k.sched.NumCPU(); i++ {
			if mask&(uint64(1)<<uint(i)) != 0 {
				k.sched.LocalQueue(i).Push(th)
				return
			}
		}
	}
	if preferredCPU >= 0 {
		k.sched.LocalQueue(preferredCPU).Push(th)
		return
	}
	if err := k.sched.Global().Enqueue(rr); err != nil {
		// Enqueue spills a full ring into its level's overflow queue and
		// currently always returns nil; if it ever reports an error, the
		// thread goes to CPU 0's local queue rather than being dropped.
		k.sched.LocalQueue(0).Push(th)
	}
}

// switchOut is the single exit path for a thread's own execution context:
// a voluntary yield, a tick-driven preemption, or completion all funnel
// through it. It checks the stack canary, commits the appropriate typestate
// transition, and hands control back to cpu's dispatch loop. When the
// thread is finishing, the call never returns - nothing will ever switch
// back into a Finished thread's context (see the arch package's doc
// comment on that one-time-per-thread park).
func (k *Kernel) switchOut(cpu int, th *thread.Thread, becomeReady bool, result any, finishErr error) {
	cs := &k.cpus[cpu]
	now := k.nowNs()
	runningPtr := cs.running.Load()
	running := *runningPtr

	if !th.CheckStackIntegrity() {
		becomeReady = false
		if finishErr == nil {
			finishErr = ErrStackOverflow
		}
	}

	if becomeReady {
		rr := running.Preempt(now)
		k.placeReady(rr, cpu)
	} else {
		running.Finish(result, finishErr)
		k.threadCount.Add(-1)
		k.sched.MarkFinished()
	}

	cs.running.Store(nil)
	k.sched.ClearRunning(cpu)
	k.switcher.ContextSwitch(th.Context(), &cs.idleCtx)
}
