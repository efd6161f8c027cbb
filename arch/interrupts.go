package arch

import "sync/atomic"

// interruptsEnabled emulates the processor interrupt-enable flag. Real
// hardware has one such flag per CPU; this module models a single logical
// CPU's worth of interrupt state per process the way the spec's reference
// implementation models it for its Linux simulation backend
// (original_source/src/preemption.rs uses a single global SIGALRM handler
// rather than per-core masking).
var interruptsEnabled atomic.Bool

func init() {
	interruptsEnabled.Store(true)
}

// EnableInterrupts re-enables timer-interrupt delivery.
func EnableInterrupts() {
	interruptsEnabled.Store(true)
}

// DisableInterrupts suppresses timer-interrupt delivery and returns the
// prior state, so callers (notably IrqGuard) can restore it on exit.
func DisableInterrupts() (wasEnabled bool) {
	return interruptsEnabled.Swap(false)
}

// InterruptsEnabled reports the current interrupt-enable state.
func InterruptsEnabled() bool {
	return interruptsEnabled.Load()
}

// RestoreInterrupts sets the interrupt-enable flag back to a previously
// observed value, as returned by DisableInterrupts.
func RestoreInterrupts(enabled bool) {
	interruptsEnabled.Store(enabled)
}
