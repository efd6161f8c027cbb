package kernel

import (
	"errors"

	"github.com/NathanVRyver/preemptive-threads/thread"
)

// Init errors (spec §6 InitError).
var (
	ErrAlreadyInitialized = errors.New("kernel: already initialized")
	ErrTimerUnavailable   = errors.New("kernel: timer hardware unavailable")
)

// Spawn errors (spec §6 SpawnError).
var (
	ErrNotInitialized   = errors.New("kernel: not initialized")
	ErrOutOfMemory      = errors.New("kernel: out of memory")
	ErrTooManyThreads   = errors.New("kernel: too many threads")
	ErrInvalidStackSize = errors.New("kernel: invalid stack size")
)

// Join errors (spec §6 JoinError). ErrJoinTimeout is thread's own sentinel,
// re-exported here so callers only need to import one package's errors.
var (
	ErrJoinTimeout  = thread.ErrJoinTimeout
	ErrJoinPanicked = errors.New("kernel: thread panicked")
	ErrJoinDetached = errors.New("kernel: thread was detached")
)

// ErrStackOverflow is the fatal join result recorded for a thread whose
// stack canary was found corrupted at a context-switch-out point (spec
// §4.6 failure semantics, §7 integrity errors).
var ErrStackOverflow = errors.New("kernel: stack overflow detected at context switch")
