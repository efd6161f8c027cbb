package scheduler

import (
	"sync/atomic"

	"github.com/NathanVRyver/preemptive-threads/ready"
	"github.com/NathanVRyver/preemptive-threads/thread"
)

// stealThreshold is the minimum queue length a neighbor CPU must have
// before a steal is attempted, per spec §4.5 step 3 ("if any has >=2
// entries, steal from its head").
const stealThreshold = 2

// divergenceQuanta is the multiplier spec §4.5 gives as an example
// threshold for the vruntime-divergence preemption condition ("e.g. 2x
// quantum").
const divergenceQuanta = 2

// Scheduler holds the per-CPU local queues and the decision logic that
// picks the next thread to run and decides when to preempt the current
// one (spec §4.5). It does not itself perform context switches - it
// returns typestate transitions for the kernel facade to act on.
type Scheduler struct {
	global *ready.Structure
	locals []*ready.LocalQueue

	minVruntime atomic.Uint64

	// running and finished back Stats' introspection counters
	// (SPEC_FULL.md's "Scheduler statistics" supplement). They are
	// maintained by the kernel facade calling MarkRunning/ClearRunning/
	// MarkFinished at the same points it already updates its own
	// per-CPU running slot and live-thread count; Scheduler never reads
	// them for any scheduling decision.
	running  []atomic.Pointer[thread.Thread]
	finished atomic.Int64
}

// New returns a Scheduler configured for numCPU CPUs, sharing global as
// the process-wide ready structure.
func New(numCPU int, global *ready.Structure) *Scheduler {
	s := &Scheduler{
		global:  global,
		locals:  make([]*ready.LocalQueue, numCPU),
		running: make([]atomic.Pointer[thread.Thread], numCPU),
	}
	for i := range s.locals {
		s.locals[i] = ready.NewLocalQueue()
	}
	return s
}

// MarkRunning records that th is now the thread running on cpu, for
// Stats' "running-per-CPU" count.
func (s *Scheduler) MarkRunning(cpu int, th *thread.Thread) {
	s.running[cpu].Store(th)
}

// ClearRunning records that cpu has gone idle or switched away from its
// prior running thread.
func (s *Scheduler) ClearRunning(cpu int) {
	s.running[cpu].Store(nil)
}

// MarkFinished increments Stats' cumulative finished-thread count.
func (s *Scheduler) MarkFinished() {
	s.finished.Add(1)
}

// Stats summarizes the scheduler's live ready/running/finished counts
// (SPEC_FULL.md's "Scheduler statistics" supplement), diagnostic only and
// not consulted by any scheduling decision.
type Stats struct {
	// Ready is the total number of threads currently in the global ready
	// structure plus every per-CPU local queue.
	Ready int
	// RunningPerCPU reports, for each CPU, whether a thread is currently
	// running there.
	RunningPerCPU []bool
	// Finished is the cumulative count of threads MarkFinished has been
	// called for over this scheduler's lifetime.
	Finished int64
}

// Stats returns a point-in-time snapshot; like the ready structure's
// bitmap, the individual counts are not collected atomically with each
// other and are meant for introspection, not synchronization.
func (s *Scheduler) Stats() Stats {
	readyCount := s.global.Len()
	for i := range s.locals {
		readyCount += s.locals[i].Len()
	}

	runningPerCPU := make([]bool, len(s.running))
	for i := range s.running {
		runningPerCPU[i] = s.running[i].Load() != nil
	}

	return Stats{
		Ready:         readyCount,
		RunningPerCPU: runningPerCPU,
		Finished:      s.finished.Load(),
	}
}

// NumCPU returns the number of CPUs this scheduler was configured for.
func (s *Scheduler) NumCPU() int { return len(s.locals) }

// LocalQueue returns the per-CPU local queue for cpu, where the kernel
// places affinity-pinned threads and threads switching out on that CPU.
func (s *Scheduler) LocalQueue(cpu int) *ready.LocalQueue { return s.locals[cpu] }

// Global returns the shared ready structure.
func (s *Scheduler) Global() *ready.Structure { return s.global }

// PickNext implements spec §4.5's pick_next: local queue, then global
// structure, then work-stealing, then idle. The local queue only wins the
// first look when it does not hold a strictly lower-priority thread than
// whatever the global structure's highest occupied level holds - otherwise
// a thread re-enqueued locally on every tick-preemption (e.g. a busy-loop
// thread ticking cooperatively) would keep out-competing a higher-priority
// thread waiting in the global structure, which would break spec §4.4's
// strict-priority guarantee.
func (s *Scheduler) PickNext(cpu int) (thread.ReadyRef, bool) {
	if level, ok := s.global.HighestReadyLevel(); ok {
		localHead := s.locals[cpu].PeekFront()
		if localHead == nil || level > int(localHead.Priority())>>3 {
			if rr, ok := s.global.Dequeue(); ok {
				s.updateMinVruntime(rr.Thread().TimeSlice().Vruntime())
				return rr, true
			}
		}
	}
	if t := s.locals[cpu].Pop(); t != nil {
		s.updateMinVruntime(t.TimeSlice().Vruntime())
		return thread.NewReadyRef(t), true
	}
	if rr, ok := s.global.Dequeue(); ok {
		s.updateMinVruntime(rr.Thread().TimeSlice().Vruntime())
		return rr, true
	}
	if t := s.steal(cpu); t != nil {
		s.updateMinVruntime(t.TimeSlice().Vruntime())
		return thread.NewReadyRef(t), true
	}
	return thread.ReadyRef{}, false
}

func (s *Scheduler) steal(cpu int) *thread.Thread {
	for i := range s.locals {
		if i == cpu {
			continue
		}
		if s.locals[i].Len() >= stealThreshold {
			if t := s.locals[i].Pop(); t != nil {
				return t
			}
		}
	}
	return nil
}

// hasHigherPriorityReady reports whether either this CPU's own local
// queue head or the global structure currently holds a thread of strictly
// higher priority than priority.
func (s *Scheduler) hasHigherPriorityReady(cpu int, priority uint8) bool {
	if head := s.locals[cpu].PeekFront(); head != nil && head.Priority() > priority {
		return true
	}
	level, ok := s.global.HighestReadyLevel()
	if !ok {
		return false
	}
	return level > int(priority)>>3
}

// updateMinVruntime advances the tracked floor to v if v is past it. The
// floor is seeded at 0 and must behave like CFS's min_vruntime: a
// non-decreasing approximation of the minimum vruntime among runnable
// threads, not an absolute minimum-ever-seen (which would stay pinned at
// whatever a freshly spawned thread's zero vruntime contributes). Callers
// pass the vruntime of a thread PickNext just chose to run - the thread
// closest to the front of its queue, and therefore a reasonable proxy for
// "the currently lowest, about-to-run vruntime" - so the floor rises as
// the pool of runnable threads collectively makes progress.
func (s *Scheduler) updateMinVruntime(v uint64) {
	for {
		cur := s.minVruntime.Load()
		if v <= cur {
			return
		}
		if s.minVruntime.CompareAndSwap(cur, v) {
			return
		}
	}
}

// OnTick implements spec §4.5's on_tick: decide whether to preempt, using
// the running slice's projected vruntime. Returns the running thread
// converted back to Ready, with its slice closed, plus true if it should be
// preempted and re-enqueued by the caller; returns false (leaving running
// alone, its slice still open) if it should keep running. The preemptible flag suppresses quantum-expiry and
// vruntime-divergence preemption but never suppresses a strictly
// higher-priority ready thread (spec §4.5).
func (s *Scheduler) OnTick(cpu int, running thread.RunningRef, nowNs uint64) (thread.ReadyRef, bool) {
	th := running.Thread()
	ts := th.TimeSlice()

	preempt := s.hasHigherPriorityReady(cpu, th.Priority())

	if th.Preemptible() {
		if ts.Expired(nowNs) {
			preempt = true
		}
		if ts.ProjectedVruntime(nowNs) > s.minVruntime.Load()+divergenceQuanta*ts.QuantumNs() {
			preempt = true
		}
	}

	if !preempt {
		return thread.ReadyRef{}, false
	}

	rr := running.Preempt(nowNs)
	return rr, true
}

// ShouldPreempt evaluates the same decision OnTick does, without closing
// the running thread's slice or transitioning any state. It is for a
// caller (the kernel's timer ISR) that is not itself the thread's own
// execution context and therefore must not perform the typestate
// transition directly - it can only flag that a preemption is due, for
// the thread to act on at its next cooperative safepoint.
func (s *Scheduler) ShouldPreempt(cpu int, th *thread.Thread, nowNs uint64) bool {
	if s.hasHigherPriorityReady(cpu, th.Priority()) {
		return true
	}
	if !th.Preemptible() {
		return false
	}
	ts := th.TimeSlice()
	if ts.Expired(nowNs) {
		return true
	}
	return ts.ProjectedVruntime(nowNs) > s.minVruntime.Load()+divergenceQuanta*ts.QuantumNs()
}

// OnYield implements spec §4.5's on_yield: unconditional, always converts
// to Ready.
func (s *Scheduler) OnYield(running thread.RunningRef, nowNs uint64) thread.ReadyRef {
	return running.Yield(nowNs)
}

// Advance ticks the ready structure's reclamation epoch. The kernel calls
// this once per scheduler tick.
func (s *Scheduler) Advance() {
	s.global.Advance()
}
