package kernel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/NathanVRyver/preemptive-threads/arch"
	"github.com/NathanVRyver/preemptive-threads/ready"
	"github.com/NathanVRyver/preemptive-threads/scheduler"
	"github.com/NathanVRyver/preemptive-threads/stackpool"
	"github.com/NathanVRyver/preemptive-threads/thread"
	"github.com/NathanVRyver/preemptive-threads/timer"
)

// Kernel coordinates the arch, timer, stackpool, thread, ready, and
// scheduler packages into a runnable scheduling core (spec §4.6). The zero
// Kernel is not usable; construct one with NewKernel and call Init before Spawn.
type Kernel struct {
	switcher arch.ContextSwitcher

	cfg         Config
	pool        *stackpool.Pool
	sched       *scheduler.Scheduler
	timerDriver *timer.Driver

	cpus []cpuState

	initialized    atomic.Bool
	timerAvailable atomic.Bool
	shuttingDown   atomic.Bool

	threadCount atomic.Int32
	drainSem    *semaphore.Weighted

	start time.Time
}

// NewKernel constructs a Kernel bound to switcher (arch.NewSoftware() in
// this module's only provided backend). Call Init before Spawn.
func NewKernel(switcher arch.ContextSwitcher) *Kernel {
	return &Kernel{switcher: switcher, start: time.Now()}
}

// Init initializes arch, timer, stack pool, and per-CPU state (spec §4.6).
// It is idempotent failure: a second call returns ErrAlreadyInitialized
// without touching state. A calibration failure in the timer driver does
// not fail Init; it falls back to cooperative-only scheduling (spec §4.6
// "Timer interrupt delivery failure"), reported via TimerAvailable.
func (k *Kernel) Init(cfg Config) error {
	if !k.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}

	cfg = cfg.withDefaults()
	k.cfg = cfg
	k.pool = cfg.pool()
	k.sched = scheduler.New(cfg.CPUCount, ready.NewStructure())
	k.cpus = make([]cpuState, cfg.CPUCount)
	k.drainSem = semaphore.NewWeighted(int64(cfg.CPUCount))

	driver := timer.NewDriver(timer.Config{FrequencyHz: cfg.TimerHz})
	k.timerDriver = driver
	if err := driver.Calibrate(); err != nil {
		k.timerAvailable.Store(false)
	} else {
		k.timerAvailable.Store(true)
		_ = driver.Start(func() {
			k.sched.Advance()
			for cpu := 0; cpu < cfg.CPUCount; cpu++ {
				k.HandleTimerInterrupt(cpu)
			}
		})
	}

	for cpu := 0; cpu < cfg.CPUCount; cpu++ {
		_ = k.drainSem.Acquire(context.Background(), 1)
		go func(cpu int) {
			defer k.drainSem.Release(1)
			k.cpuLoop(cpu)
		}(cpu)
	}

	return nil
}

// IsInitialized reports whether Init has succeeded.
func (k *Kernel) IsInitialized() bool { return k.initialized.Load() }

// TimerAvailable reports whether the timer driver calibrated successfully;
// when false, preemption never occurs and YieldNow is the only way a
// thread gives up its slice.
func (k *Kernel) TimerAvailable() bool { return k.timerAvailable.Load() }

func (k *Kernel) nowNs() uint64 { return uint64(time.Since(k.start).Nanoseconds()) }

// SpawnOption configures an individual Spawn call beyond priority,
// mirroring thread.ThreadBuilder's chainable setters (spec §6).
type SpawnOption func(thread.ThreadBuilder) thread.ThreadBuilder

// WithStackSizeClass overrides the default stack size class for one Spawn.
func WithStackSizeClass(c stackpool.SizeClass) SpawnOption {
	return func(b thread.ThreadBuilder) thread.ThreadBuilder { return b.StackSizeClass(c) }
}

// WithStackSize requests at least size bytes of stack.
func WithStackSize(size int) SpawnOption {
	return func(b thread.ThreadBuilder) thread.ThreadBuilder { return b.StackSize(size) }
}

// WithName sets the spawned thread's debug name.
func WithName(name string) SpawnOption {
	return func(b thread.ThreadBuilder) thread.ThreadBuilder { return b.Name(name) }
}

// WithCPUAffinity pins the spawned thread to the CPUs set in mask.
func WithCPUAffinity(mask uint64) SpawnOption {
	return func(b thread.ThreadBuilder) thread.ThreadBuilder { return b.CPUAffinity(mask) }
}

// WithPreemptible overrides the spawned thread's initial preemptible flag.
func WithPreemptible(v bool) SpawnOption {
	return func(b thread.ThreadBuilder) thread.ThreadBuilder { return b.Preemptible(v) }
}

// WithNice sets the supplemented advisory nice value.
func WithNice(n int8) SpawnOption {
	return func(b thread.ThreadBuilder) thread.ThreadBuilder { return b.Nice(n) }
}

// WithQuantum overrides the priority-derived time quantum.
func WithQuantum(ns uint64) SpawnOption {
	return func(b thread.ThreadBuilder) thread.ThreadBuilder { return b.WithQuantum(ns) }
}

// Spawn allocates a ThreadId and stack, constructs a Thread, enqueues it
// Ready, and returns a JoinHandle (spec §4.6). entry receives a
// *ThreadContext bound to its own thread for Yield/Tick/Exit.
func (k *Kernel) Spawn(entry func(ctx *ThreadContext), priority uint8, opts ...SpawnOption) (*thread.JoinHandle, error) {
	if !k.initialized.Load() {
		return nil, ErrNotInitialized
	}
	if entry == nil {
		return nil, ErrInvalidStackSize
	}
	if int(k.threadCount.Load()) >= k.cfg.MaxThreads {
		return nil, ErrTooManyThreads
	}

	b := thread.NewBuilder().Priority(priority).StackSizeClass(k.cfg.StackSizeClass)
	for _, opt := range opts {
		b = opt(b)
	}

	var th *thread.Thread
	ctx := &ThreadContext{k: k}
	entryWrapper := func() { entry(ctx) }
	exitWrapper := func(recovered any) { k.finishThread(th, recovered) }

	t, handle, err := b.Spawn(thread.NextThreadId(), k.pool, k.switcher, entryWrapper, exitWrapper)
	if err != nil {
		switch {
		case errors.Is(err, thread.ErrOutOfMemory):
			return nil, ErrOutOfMemory
		case errors.Is(err, thread.ErrInvalidConfig):
			return nil, ErrInvalidStackSize
		default:
			return nil, err
		}
	}
	th = t
	ctx.th = t
	k.threadCount.Add(1)

	k.placeReady(thread.NewReadyRef(t), -1)
	return handle, nil
}

// yieldNow implements ThreadContext.Yield: gives up the calling thread's
// slice (spec §4.6 yield_now), or returns at once without a context switch
// when no other thread is queued in the global structure or any local queue.
func (k *Kernel) yieldNow(cpu int, th *thread.Thread) {
	queued := k.sched.Global().Len()
	for i := 0; i < k.sched.NumCPU(); i++ {
		queued += k.sched.LocalQueue(i).Len()
	}
	if queued == 0 {
		return
	}
	k.switchOut(cpu, th, true, nil, nil)
}

// checkPreempt implements ThreadContext.Tick's cooperative safepoint.
func (k *Kernel) checkPreempt(cpu int, th *thread.Thread) {
	cs := &k.cpus[cpu]
	if !cs.preemptPending.CompareAndSwap(true, false) {
		return
	}
	k.switchOut(cpu, th, true, nil, nil)
}

// finishThread implements ThreadContext.Exit and normal/panicking return
// from an entry function (spec §4.6 exit_thread), called from the arch
// trampoline's exit callback.
func (k *Kernel) finishThread(th *thread.Thread, recovered any) {
	var result any
	var err error
	if recovered != nil {
		if er, ok := recovered.(exitRequest); ok {
			result = er.result
		} else {
			err = fmt.Errorf("%w: %v", ErrJoinPanicked, recovered)
		}
	}
	k.switchOut(th.ScheduledCPU(), th, false, result, err)
}

// HandleTimerInterrupt is the timer ISR entry point (spec §4.6, called
// only from the timer driver). It is reentry-guarded per CPU (spec §7) and
// never performs a context switch itself - see the kernel package doc
// comment - it only raises cpuState.preemptPending for the running
// thread's own next Tick call to act on.
func (k *Kernel) HandleTimerInterrupt(cpu int) {
	cs := &k.cpus[cpu]
	if !cs.inHandler.CompareAndSwap(false, true) {
		return
	}
	defer cs.inHandler.Store(false)

	guard := timer.NewIrqGuard()
	defer guard.Release()

	if timer.PreemptionDisabled(&cs.preemptCounter) {
		return
	}

	runningPtr := cs.running.Load()
	if runningPtr == nil {
		return // idle; the dispatch loop schedules on its own once work appears
	}
	running := *runningPtr
	th := running.Thread()

	if k.sched.ShouldPreempt(cpu, th, k.nowNs()) {
		cs.preemptPending.Store(true)
	}
}

// Stats summarizes live kernel state for diagnostics and tests
// (SPEC_FULL.md's scheduler-statistics supplement). Scheduler embeds the
// scheduler package's own ready/running/finished counters rather than
// duplicating them here.
type Stats struct {
	ThreadCount    int32
	CPUCount       int
	TimerAvailable bool
	Scheduler      scheduler.Stats
}

// Stats returns a point-in-time snapshot.
func (k *Kernel) Stats() Stats {
	return Stats{
		ThreadCount:    k.threadCount.Load(),
		CPUCount:       len(k.cpus),
		TimerAvailable: k.timerAvailable.Load(),
		Scheduler:      k.sched.Stats(),
	}
}

// Shutdown stops the timer driver and waits for every CPU's dispatch loop
// to drain, bounded by ctx. A dispatch loop only drains between threads -
// a thread that never calls Yield or Tick keeps its CPU's loop parked
// until ctx is done.
func (k *Kernel) Shutdown(ctx context.Context) error {
	if !k.initialized.Load() {
		return ErrNotInitialized
	}
	k.shuttingDown.Store(true)
	if k.timerAvailable.Load() {
		_ = k.timerDriver.Stop()
	}
	return k.drainSem.Acquire(ctx, int64(len(k.cpus)))
}
