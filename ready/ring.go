package ready

import (
	"sync/atomic"

	"github.com/NathanVRyver/preemptive-threads/thread"
)

// ringCapacity is the fixed per-priority circular buffer capacity, spec
// §4.4's "bounded; capacity fixed at build time, e.g. 32 per priority".
const ringCapacity = 32

// ringCell pairs a slot's value with a sequence number marking which lap
// around the buffer currently owns it (Vyukov's bounded MPMC queue
// design). A slot starts with sequence == its index; an enqueuer may claim
// a slot only when sequence == its enqueue position, and a dequeuer may
// claim it only when sequence == its dequeue position + 1. Publication
// (enqueuer's value store) happens strictly before the sequence bump that
// makes the slot visible to a dequeuer, and retirement (dequeuer's value
// load) happens strictly before the sequence bump that makes the slot
// available to the next lap's enqueuer - so a producer and a consumer can
// never observe or overwrite the same slot at once, even if either is
// preempted mid-operation.
//
// This replaces an earlier reserve-then-store scheme (CAS the tail index,
// then store the value; nil meant "reserved but unwritten", and a popper
// reset the slot to nil after its head CAS). That nil sentinel raced: if a
// dequeuer was preempted between its head-CAS and its Store(nil), and the
// ring wrapped a full lap before it resumed, a later enqueuer's value in
// that same slot would be clobbered back to nil by the stale Store(nil) -
// silently dropping a ready thread and leaving the slot stuck empty.
type ringCell struct {
	sequence atomic.Uint64
	value    atomic.Pointer[thread.Thread]
}

// ring is a bounded lock-free MPMC circular buffer of *thread.Thread, spec
// §4.4's "per-priority circular buffer ... with a compare-exchange on the
// tail/head index". The zero value is not usable - construct with newRing
// so every cell's sequence number is seeded to its index.
type ring struct {
	cells      [ringCapacity]ringCell
	enqueuePos atomic.Uint64
	dequeuePos atomic.Uint64
}

func newRing() *ring {
	r := &ring{}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}
	return r
}

func (r *ring) tryEnqueue(t *thread.Thread) bool {
	for {
		pos := r.enqueuePos.Load()
		cell := &r.cells[pos%ringCapacity]
		seq := cell.sequence.Load()
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if r.enqueuePos.CompareAndSwap(pos, pos+1) {
				cell.value.Store(t)
				cell.sequence.Store(pos + 1)
				return true
			}
			// Lost the race for this slot; retry with a fresh position.
		case diff < 0:
			return false // ring full: this slot is still on the previous lap
		default:
			// Another producer has already advanced past pos; retry.
		}
	}
}

func (r *ring) tryDequeue() *thread.Thread {
	for {
		pos := r.dequeuePos.Load()
		cell := &r.cells[pos%ringCapacity]
		seq := cell.sequence.Load()
		diff := int64(seq) - int64(pos+1)
		switch {
		case diff == 0:
			if r.dequeuePos.CompareAndSwap(pos, pos+1) {
				v := cell.value.Load()
				cell.value.Store(nil)
				cell.sequence.Store(pos + ringCapacity)
				return v
			}
			// Lost the race for this slot; retry with a fresh position.
		case diff < 0:
			return nil // empty: this slot has not been published yet
		default:
			// Another consumer has already advanced past pos; retry.
		}
	}
}

func (r *ring) isEmpty() bool {
	return r.length() <= 0
}

func (r *ring) length() int {
	return int(r.enqueuePos.Load() - r.dequeuePos.Load())
}
