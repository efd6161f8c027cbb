// Package kernel implements the embedding facade of spec §4.6: Init,
// Spawn, cooperative Yield/Tick, and the timer-ISR entry point, wiring
// together arch, timer, stackpool, thread, ready, and scheduler into one
// runnable scheduling core.
//
// Go has no ambient "currently running thread" slot the way the original
// design's single spin-locked current_thread field assumes (no
// thread-locals, and a goroutine-parking context switch means the
// "current CPU" is just whichever goroutine happens to be running).
// Spawn's entry functions instead receive a *ThreadContext handle bound to
// their own thread, and use it to Yield or Tick rather than calling bare
// package-level functions.
//
// True asynchronous preemption of a thread's own Go code is not
// implementable on top of goroutine parking - nothing can reach into a
// running goroutine and redirect it from outside. HandleTimerInterrupt,
// called from the timer driver's own goroutine, therefore only evaluates
// the preemption decision and raises a per-CPU flag; the actual context
// switch happens the next time the preempted thread calls ThreadContext.Tick
// or ThreadContext.Yield. CPU-bound thread bodies that never call either
// are never preempted, a documented limit of the Software backend this
// module accepts in exchange for portable, assembly-free Go.
package kernel
