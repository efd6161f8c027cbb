package arch

// ContextSwitcher is the architecture context-switch primitive (spec §4.1).
// Implementations must uphold: interrupts disabled across the call, both
// pointers valid, and next a context previously populated by InitStack or
// returned resumable by an earlier switch.
type ContextSwitcher interface {
	// ContextSwitch saves the caller's register set into prev, then loads
	// and resumes next. prev must already be Resumable - it must itself
	// have been the target of a prior InitStack/FirstSwitch/ContextSwitch.
	// Control returns to the caller only when some later switch targets
	// prev again.
	ContextSwitch(prev, next *SavedContext)

	// FirstSwitch is the dedicated entry path for a CPU's idle loop
	// bootstrapping into its very first thread (or back into an idle
	// context after work runs out). Unlike ContextSwitch it does not
	// require prev to already be Resumable: prev is marked resumable as a
	// side effect, since the caller, by construction, is a live Go
	// goroutine representing real suspendable state rather than the
	// uninitialized memory the spec's REDESIGN notes warn about.
	FirstSwitch(prev, next *SavedContext)

	// InitStack prepares a brand-new thread's context: entry runs on a
	// dedicated goroutine once first switched into; when entry returns, or
	// panics, exit is invoked exactly once with the recovered panic value
	// (nil on normal return) from that same goroutine, before it exits.
	// This is the portable equivalent of writing a synthetic trampoline
	// frame at the top of a freshly allocated stack (spec §4.1).
	InitStack(ctx *SavedContext, entry func(), exit func(recovered any))
}

// Software is the provided ContextSwitcher backend: a context switch is a
// handoff between parked goroutines rather than a register save/restore.
// This is the module's answer to spec §9's "signal handler-based
// preemption (Linux simulation)" note and to gVisor's multi-backend
// platform design - one interface, a portable implementation, with room for
// a real assembly-backed implementation to be dropped in behind the same
// interface on a target that supports it.
type Software struct{}

// NewSoftware constructs the default, portable ContextSwitcher.
func NewSoftware() *Software {
	return &Software{}
}

func (s *Software) InitStack(ctx *SavedContext, entry func(), exit func(recovered any)) {
	if ctx == nil {
		panic("arch: init stack: nil context")
	}
	if ctx.resumable {
		panic("arch: init stack: context already initialized")
	}
	if entry == nil || exit == nil {
		panic("arch: init stack: nil entry or exit")
	}

	ctx.resumeCh = make(chan struct{}, 1)
	ctx.resumable = true

	go func() {
		<-ctx.resumeCh

		var recovered any
		func() {
			defer func() { recovered = recover() }()
			entry()
		}()

		exit(recovered)
	}()
}

func (s *Software) FirstSwitch(prev, next *SavedContext) {
	if prev == nil || next == nil {
		panic("arch: first switch: nil context")
	}
	if !next.resumable {
		panic("arch: first switch: next not resumable")
	}
	if prev.resumeCh == nil {
		prev.resumeCh = make(chan struct{}, 1)
	}
	prev.resumable = true

	next.resumeCh <- struct{}{}
	<-prev.resumeCh
}

func (s *Software) ContextSwitch(prev, next *SavedContext) {
	if prev == nil || !prev.resumable {
		panic("arch: context switch: prev not resumable")
	}
	if next == nil || !next.resumable {
		panic("arch: context switch: next not resumable")
	}

	next.resumeCh <- struct{}{}
	<-prev.resumeCh
}
