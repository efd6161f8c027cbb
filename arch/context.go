package arch

// SavedContext is the architecture-defined callee-saved register set, stack
// pointer, return instruction pointer, and interrupt-flags word for one
// thread. Its field layout is part of the stable ABI described in spec §6:
// an out-of-tree assembly backend would access these fields by offset, so
// fields are never reordered or removed once published, only appended to.
//
// The register fields follow spec §4.1's per-ISA register
// sets (x86-64: RSP/RBP/RBX/R12-R15/RFLAGS; AArch64: the AAPCS64
// callee-saved set; RISC-V: s/ra/gp/tp plus sstatus). Since Software (the
// only backend this module ships) never dereferences these fields, they are
// kept as a single portable struct covering the union of all three ISAs
// rather than one struct per GOARCH with build tags - simpler for a
// documentation-only ABI surface, and trivially specializable later.
type SavedContext struct {
	// AMD64 callee-saved set.
	RSP, RBP, RBX              uint64
	R12, R13, R14, R15         uint64
	RFLAGS                     uint64

	// AArch64 AAPCS64 callee-saved set (X19-X28, FP, LR, SP) plus PSTATE.
	X19, X20, X21, X22, X23 uint64
	X24, X25, X26, X27, X28 uint64
	FP, LR, SP              uint64
	PSTATE                  uint64

	// RISC-V s0-s11, ra, gp, tp, sp, plus the sstatus CSR.
	S0, S1, S2, S3, S4, S5   uint64
	S6, S7, S8, S9, S10, S11 uint64
	RA, GP, TP, SPRV         uint64
	SSTATUS                  uint64

	// FPUState is non-nil only when the full-fpu feature is enabled and the
	// owning thread has touched the FPU/vector unit since it was last saved
	// (lazy save, per spec §4.1 and §9).
	FPUState *FPUState

	// InterruptsEnabled mirrors the interrupt-enable bit captured at the
	// moment this context was saved, so a thread's preemption mask survives
	// a context switch (spec §4.1: "Interrupt flags are saved/restored as
	// part of the register set").
	InterruptsEnabled bool

	// resumable is set once a context has been populated by InitStack or by
	// FirstSwitch, and is checked by Software.ContextSwitch to enforce the
	// "previously saved or stack-initialized" caller contract.
	resumable bool

	// resumeCh is Software's handoff token: sending on it wakes the
	// goroutine parked waiting to receive from it. It is the channel
	// analogue of "the synthetic stack frame a register restore pops".
	resumeCh chan struct{}
}

// FPUState is an opaque, architecture-sized save area for vector/FPU
// registers, allocated only when the full-fpu build feature is enabled.
type FPUState struct {
	// Lane is a fixed-size save area large enough for the widest vector
	// register file this module targets (AVX-512 zmm / SVE); unused on
	// architectures with smaller vector files.
	Lane [64]uint64
}

// Resumable reports whether this context was ever populated by InitStack or
// passed as prev to FirstSwitch - i.e. whether it is legal to pass as an
// argument to ContextSwitch.
func (c *SavedContext) Resumable() bool {
	return c != nil && c.resumable
}
