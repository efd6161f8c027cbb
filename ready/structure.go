package ready

import (
	"errors"
	"math/bits"
	"sync/atomic"

	"github.com/NathanVRyver/preemptive-threads/thread"
)

// PriorityLevels is the number of distinct priority buckets the structure
// shards its ready set across (spec §3's ReadyStructure: "supports up to
// 32 priority levels").
const PriorityLevels = 32

// ErrReadyFull reports that a priority level could take no more threads.
// Enqueue never returns it: a level's overflow list is an unbounded
// lock-free queue, so an insert that misses the ring always succeeds there.
// The error is kept for fidelity with the documented contract (spec §4.4).
var ErrReadyFull = errors.New("ready: priority level full")

type level struct {
	ring     *ring
	overflow *Queue
}

// Structure is the process-wide ready-to-run set (spec §4.4): a priority
// bitmap over per-priority circular buffers, each backed by an overflow
// queue for the rare case the buffer is saturated.
type Structure struct {
	bitmap atomic.Uint32
	levels [PriorityLevels]level
}

// NewStructure returns an empty ready structure.
func NewStructure() *Structure {
	s := &Structure{}
	for i := range s.levels {
		s.levels[i].ring = newRing()
		s.levels[i].overflow = NewQueue()
	}
	return s
}

// levelFor computes the priority bucket for a raw priority byte: p = min(priority >> 3, 31).
func levelFor(priority uint8) int {
	p := int(priority) >> 3
	if p > PriorityLevels-1 {
		p = PriorityLevels - 1
	}
	return p
}

func (s *Structure) setBit(p int) {
	mask := uint32(1) << uint(p)
	for {
		old := s.bitmap.Load()
		if old&mask != 0 {
			return
		}
		if s.bitmap.CompareAndSwap(old, old|mask) {
			return
		}
	}
}

func (s *Structure) clearBit(p int) {
	mask := uint32(1) << uint(p)
	for {
		old := s.bitmap.Load()
		if old&mask == 0 {
			return
		}
		if s.bitmap.CompareAndSwap(old, old&^mask) {
			return
		}
	}
}

// Enqueue inserts rr's thread at its priority level: the fast path pushes
// into the fixed-capacity ring, falling back to the overflow queue when
// the ring is full (spec §4.4's enqueue algorithm).
func (s *Structure) Enqueue(rr thread.ReadyRef) error {
	t := rr.Thread()
	p := levelFor(rr.Priority())
	lvl := &s.levels[p]

	if lvl.ring.tryEnqueue(t) {
		s.setBit(p)
		return nil
	}

	lvl.overflow.Push(t)
	s.setBit(p)
	return nil
}

// Dequeue selects the highest-priority non-empty level and pops its
// oldest entry, returning it as a fresh ReadyRef. Returns ok=false when
// the structure is empty (spec §4.4's dequeue algorithm, including the
// advisory-bitmap retry-on-race behavior).
func (s *Structure) Dequeue() (thread.ReadyRef, bool) {
	for {
		bm := s.bitmap.Load()
		if bm == 0 {
			return thread.ReadyRef{}, false
		}
		p := bits.Len32(bm) - 1
		lvl := &s.levels[p]

		if t := lvl.ring.tryDequeue(); t != nil {
			if lvl.ring.isEmpty() && lvl.overflow.IsEmpty() {
				s.clearBit(p)
			}
			return thread.NewReadyRef(t), true
		}
		if t := lvl.overflow.Pop(); t != nil {
			if lvl.ring.isEmpty() && lvl.overflow.IsEmpty() {
				s.clearBit(p)
			}
			return thread.NewReadyRef(t), true
		}

		// Nothing there right now - another dequeuer drained it first, or
		// the bitmap bit was stale. Clear it and let the outer loop
		// re-check the (possibly re-set-by-a-racing-enqueue) bitmap.
		s.clearBit(p)
	}
}

// HighestReadyLevel returns the highest priority bucket with at least one
// ready thread, per the advisory bitmap (spec §5: "Ready-structure bitmap
// is advisory... the per-priority buffer CAS is authoritative"; callers
// that need a hard guarantee should use Dequeue instead of trusting this
// for anything beyond a preemption hint).
func (s *Structure) HighestReadyLevel() (int, bool) {
	bm := s.bitmap.Load()
	if bm == 0 {
		return 0, false
	}
	return bits.Len32(bm) - 1, true
}

// Len returns the approximate number of ready threads across all priority
// levels, for diagnostics.
func (s *Structure) Len() int {
	n := 0
	for i := range s.levels {
		n += s.levels[i].ring.length() + s.levels[i].overflow.Len()
	}
	return n
}

// Advance ticks the global reclamation epoch and reclaims any overflow
// queue node old enough to no longer be in flight. The scheduler calls
// this once per timer tick.
func (s *Structure) Advance() {
	globalEpoch.Add(1)
	for i := range s.levels {
		s.levels[i].overflow.reclaim()
	}
}
