// Package arch provides the architecture context-switch primitive: saved
// register layouts, interrupt-mask control, memory barriers, and the
// synthetic-frame trampoline used to bootstrap a brand-new thread's stack.
//
// A literal register-save/restore context switch is not expressible in
// portable Go (no inline assembly, no raw stack-pointer manipulation across
// goroutines). Instead, ContextSwitcher is an interface with exactly one
// provided implementation, Software, which performs the handoff by parking
// and waking goroutines on channels - the same architectural shape gVisor's
// platform package uses to hide ptrace/systrap/KVM behind one interface.
// SavedContext keeps the spec's documented per-architecture register-name
// fields so that the ABI layout is still a stable, field-addressable
// contract for any future assembly-backed implementation; Software itself
// never reads them.
//
// A Finished thread's goroutine parks permanently on its own resumeCh
// rather than actually exiting, since nothing will ever switch back into
// it; this is a one-time-per-thread leak equivalent to the memory a real
// kernel would keep reserved for a zombie task table entry, not an
// unbounded growth. Callers that spawn and finish very many short-lived
// threads should budget for it the way they would budget for a similarly
// shaped process/thread-table limit on a real kernel.
package arch
