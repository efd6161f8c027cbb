package kernel

import (
	"github.com/NathanVRyver/preemptive-threads/thread"
	"github.com/NathanVRyver/preemptive-threads/timer"
)

// ThreadContext is the handle a spawned entry function uses to cooperate
// with the scheduler from inside its own body. It stands in for the
// original design's ambient "current thread" global: a goroutine has no
// implicit per-thread slot to read that state from, so it is passed in
// explicitly instead, the same way context.Context is threaded through a
// call chain rather than read from somewhere ambient.
type ThreadContext struct {
	k  *Kernel
	th *thread.Thread
}

// Id returns the calling thread's identifier.
func (c *ThreadContext) Id() thread.ThreadId { return c.th.Id() }

// Priority returns the calling thread's current scheduling priority.
func (c *ThreadContext) Priority() uint8 { return c.th.Priority() }

// Yield cooperatively gives up the remainder of this thread's time slice
// (spec §4.6 yield_now), enqueues it back as Ready, and blocks until the
// scheduler runs it again. Returns immediately, without a context switch,
// if nothing else is runnable.
func (c *ThreadContext) Yield() {
	c.k.yieldNow(c.th.ScheduledCPU(), c.th)
}

// Tick is the cooperative preemption safepoint: long-running thread bodies
// should call it periodically (e.g. at loop back-edges). It performs the
// actual context switch if a prior timer interrupt flagged this thread for
// preemption; otherwise it returns immediately. See the kernel package doc
// comment for why asynchronous preemption requires this cooperative call.
func (c *ThreadContext) Tick() {
	c.k.checkPreempt(c.th.ScheduledCPU(), c.th)
}

// DisablePreemption scopes a region in which the timer ISR's preemption
// decision is skipped for this thread's CPU, while interrupts continue to
// be delivered (spec §4.2/§9's PreemptGuard, distinct from the ISR reentry
// guard per SPEC_FULL.md REDESIGN #6). Release the returned guard exactly
// once.
func (c *ThreadContext) DisablePreemption() *timer.PreemptGuard {
	return timer.NewPreemptGuard(&c.k.cpus[c.th.ScheduledCPU()].preemptCounter)
}

// exitRequest is the panic value ThreadContext.Exit raises; the trampoline
// installed by Kernel.Spawn recognizes it and unwraps the carried result
// rather than reporting a real panic.
type exitRequest struct{ result any }

// Exit terminates the calling thread early, equivalent to returning result
// from the entry function but callable from a nested frame (spec §4.6
// exit_thread). Never returns.
func (c *ThreadContext) Exit(result any) {
	panic(exitRequest{result: result})
}
