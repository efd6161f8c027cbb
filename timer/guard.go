package timer

import (
	"sync/atomic"

	"github.com/NathanVRyver/preemptive-threads/arch"
)

// IrqGuard scopes a region with interrupts disabled, restoring the prior
// state on Release. Spec §4.2: "All context switches occur inside an
// IrqGuard." A guard must not be released twice.
type IrqGuard struct {
	prevEnabled bool
	released    bool
}

// NewIrqGuard disables interrupts and records the prior state.
func NewIrqGuard() *IrqGuard {
	return &IrqGuard{prevEnabled: arch.DisableInterrupts()}
}

// Release restores the interrupt-enable state observed when the guard was
// constructed.
func (g *IrqGuard) Release() {
	if g.released {
		panic("timer: irq guard: released twice")
	}
	g.released = true
	arch.RestoreInterrupts(g.prevEnabled)
}

// PreemptGuard scopes a region in which the scheduler will not preempt the
// current thread, while interrupts continue to be delivered (spec §4.2,
// GLOSSARY). It increments a per-CPU disable counter owned by the caller
// (typically a per-CPU scheduler struct) so nested guards compose.
type PreemptGuard struct {
	counter  *atomic.Int32
	released bool
}

// NewPreemptGuard increments counter and returns a guard that decrements it
// on Release. counter is expected to be a field on the owning CPU's state,
// shared across all PreemptGuards taken on that CPU.
func NewPreemptGuard(counter *atomic.Int32) *PreemptGuard {
	counter.Add(1)
	return &PreemptGuard{counter: counter}
}

// Release decrements the per-CPU preempt-disable counter.
func (g *PreemptGuard) Release() {
	if g.released {
		panic("timer: preempt guard: released twice")
	}
	g.released = true
	g.counter.Add(-1)
}

// PreemptionDisabled reports whether the per-CPU counter is currently
// non-zero, i.e. whether the scheduler's tick handler should skip its
// preemption decision (still running, still ticking, just not deciding).
func PreemptionDisabled(counter *atomic.Int32) bool {
	return counter.Load() != 0
}
