// Package timer implements the periodic preemption-tick driver (spec §4.2):
// a calibrated monotonic clock, start/stop/one-shot control, and the two
// guard types (IrqGuard, PreemptGuard) that scope interrupt-disabled and
// preemption-disabled regions respectively.
package timer
