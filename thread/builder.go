package thread

import (
	"errors"

	"github.com/NathanVRyver/preemptive-threads/arch"
	"github.com/NathanVRyver/preemptive-threads/stackpool"
)

// SpawnError enumerates the ways ThreadBuilder.Spawn can fail (spec §4.6).
type SpawnError struct {
	msg string
}

func (e *SpawnError) Error() string { return e.msg }

// Sentinel SpawnError values. Compare with errors.Is.
var (
	ErrOutOfMemory    error = &SpawnError{"thread: spawn: out of memory"}
	ErrInvalidConfig  error = &SpawnError{"thread: spawn: invalid configuration"}
	ErrTooManyThreads error = &SpawnError{"thread: spawn: too many threads"}
)

const defaultPriority = referencePriority

// ThreadBuilder configures a thread before creation, mirroring
// std::thread::Builder's chainable style (spec §4.6, supplemented per
// SPEC_FULL.md with Nice and WithQuantum).
type ThreadBuilder struct {
	sizeClass   stackpool.SizeClass
	customSize  int
	priority    uint8
	nice        int8
	name        string
	preemptible bool
	affinity    uint64
	quantumNs   uint64 // 0 = derive from priority
}

// NewBuilder returns a ThreadBuilder with default settings: Small stack,
// reference priority, preemptible, no affinity restriction.
func NewBuilder() ThreadBuilder {
	return ThreadBuilder{
		sizeClass:   stackpool.Small,
		priority:    defaultPriority,
		preemptible: true,
	}
}

// StackSizeClass sets an explicit stack size class.
func (b ThreadBuilder) StackSizeClass(c stackpool.SizeClass) ThreadBuilder {
	b.sizeClass = c
	return b
}

// StackSize requests at least size bytes of stack, choosing the smallest
// standard class that satisfies it, or Custom if size exceeds Large.
func (b ThreadBuilder) StackSize(size int) ThreadBuilder {
	b.sizeClass = stackpool.ForSize(size)
	if b.sizeClass == stackpool.Custom {
		b.customSize = size
	}
	return b
}

// Priority sets the thread's scheduling priority (0-255, higher is more
// important).
func (b ThreadBuilder) Priority(p uint8) ThreadBuilder {
	b.priority = p
	return b
}

// Nice sets the supplemented nice value (Unix -20..19 convention); it does
// not itself change Priority, it is carried through to Thread.Nice() for
// callers that want nice-style tuning alongside raw priority.
func (b ThreadBuilder) Nice(n int8) ThreadBuilder {
	b.nice = n
	return b
}

// Name sets the thread's debug name.
func (b ThreadBuilder) Name(name string) ThreadBuilder {
	b.name = name
	return b
}

// Preemptible controls the spawned thread's initial preemptible flag.
func (b ThreadBuilder) Preemptible(v bool) ThreadBuilder {
	b.preemptible = v
	return b
}

// CPUAffinity sets the initial CPU affinity bitmask.
func (b ThreadBuilder) CPUAffinity(mask uint64) ThreadBuilder {
	b.affinity = mask
	return b
}

// WithQuantum overrides the priority-derived time quantum with an explicit
// duration in nanoseconds (SPEC_FULL.md supplement).
func (b ThreadBuilder) WithQuantum(ns uint64) ThreadBuilder {
	b.quantumNs = ns
	return b
}

// Spawn allocates a stack from pool, initializes its context via switcher,
// and returns a new Thread in the Ready state plus its JoinHandle. exit is
// invoked by the architecture backend exactly once when entry returns or
// panics; callers (the kernel package) use it to record the join outcome
// and advance the scheduler.
func (b ThreadBuilder) Spawn(id ThreadId, pool *stackpool.Pool, switcher arch.ContextSwitcher, entry func(), exit func(recovered any)) (*Thread, *JoinHandle, error) {
	if entry == nil {
		return nil, nil, ErrInvalidConfig
	}

	var (
		stack *stackpool.Stack
		err   error
	)
	if b.sizeClass == stackpool.Custom {
		stack, err = pool.AllocateCustom(b.customSize)
	} else {
		stack, err = pool.Allocate(b.sizeClass)
	}
	if err != nil {
		if errors.Is(err, stackpool.ErrOutOfMemory) {
			return nil, nil, ErrOutOfMemory
		}
		return nil, nil, ErrInvalidConfig
	}

	ctx := &arch.SavedContext{}
	switcher.InitStack(ctx, entry, exit)

	t := NewThread(id, b.priority, stack, ctx, pool)
	t.SetNice(b.nice)
	t.SetPreemptible(b.preemptible)
	t.SetCPUAffinity(b.affinity)
	if b.name != "" {
		t.SetName(b.name)
	}
	if b.quantumNs != 0 {
		t.timeSlice.SetQuantum(b.quantumNs)
	}

	handle := newJoinHandle(t)
	return t, handle, nil
}
