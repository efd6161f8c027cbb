package arch

// SaveFPU and RestoreFPU implement the lazy FPU/vector-state save/restore
// described in spec §4.1 and §9: a thread's vector state is only persisted
// when another thread is about to use the FPU, not on every context switch.
// Software never executes real vector instructions on behalf of a thread,
// so these allocate/copy the save area but perform no hardware save.

// SaveFPU allocates ctx.FPUState if necessary and marks it populated. Real
// backends would execute the architecture's save instruction (FXSAVE,
// `stp`/`str` of the SIMD file, vector CSR spills) here instead.
func SaveFPU(ctx *SavedContext) {
	if ctx.FPUState == nil {
		ctx.FPUState = &FPUState{}
	}
}

// RestoreFPU is the inverse of SaveFPU; it is a caller error to restore a
// context that was never saved.
func RestoreFPU(ctx *SavedContext) {
	if ctx.FPUState == nil {
		panic("arch: restore fpu: context has no saved fpu state")
	}
}
