package ready

import (
	"sync/atomic"

	"github.com/NathanVRyver/preemptive-threads/thread"
)

type node struct {
	value        *thread.Thread
	next         atomic.Pointer[node]
	retiredEpoch uint64
}

// Queue is a lock-free Michael-Scott FIFO (spec §4.4's per-CPU local
// queue, also reused here for a priority level's overflow list once its
// ring buffer is full). A dummy head node avoids the empty-queue
// head-equals-tail ambiguity the original design calls out.
type Queue struct {
	head atomic.Pointer[node]
	tail atomic.Pointer[node]

	retired atomic.Pointer[node] // Treiber stack of nodes pending reclaim
	length  atomic.Int64
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	dummy := &node{}
	q := &Queue{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// Push appends t to the tail of the queue.
func (q *Queue) Push(t *thread.Thread) {
	n := &node{value: t}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				q.tail.CompareAndSwap(tail, n)
				q.length.Add(1)
				return
			}
		} else {
			q.tail.CompareAndSwap(tail, next)
		}
	}
}

// Pop removes and returns the thread at the head of the queue, or nil if
// empty.
func (q *Queue) Pop() *thread.Thread {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if head == tail {
			if next == nil {
				return nil
			}
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		v := next.value
		if q.head.CompareAndSwap(head, next) {
			q.length.Add(-1)
			q.retire(head)
			return v
		}
	}
}

// PeekFront returns the thread at the head of the queue without removing
// it, or nil if empty. Used by the scheduler's preemption decision to
// inspect a waiting thread's priority without disturbing FIFO order.
func (q *Queue) PeekFront() *thread.Thread {
	head := q.head.Load()
	next := head.next.Load()
	if next == nil {
		return nil
	}
	return next.value
}

// Len returns the approximate number of queued entries. It is exact in the
// absence of concurrent mutation and otherwise a momentary snapshot, which
// is all the scheduler's work-stealing peek (spec §4.5 step 3) needs.
func (q *Queue) Len() int {
	return int(q.length.Load())
}

// IsEmpty reports whether the queue currently has no entries.
func (q *Queue) IsEmpty() bool {
	return q.head.Load() == q.tail.Load()
}

func (q *Queue) retire(n *node) {
	n.retiredEpoch = globalEpoch.Load()
	for {
		old := q.retired.Load()
		n.next.Store(old)
		if q.retired.CompareAndSwap(old, n) {
			return
		}
	}
}

// reclaim walks the retired list and clears the forward pointer of any
// node old enough (per reclaimLag) that no in-flight traversal can still
// be holding it, letting the garbage collector drop it. Called from
// Structure.Advance, once per scheduler tick.
func (q *Queue) reclaim() {
	current := globalEpoch.Load()
	var keep, rest *node

	n := q.retired.Swap(nil)
	for n != nil {
		next := n.next.Load()
		if current >= n.retiredEpoch+reclaimLag {
			n.value = nil
			n.next.Store(nil)
		} else {
			n.next.Store(rest)
			rest = n
		}
		n = next
	}
	keep = rest
	if keep != nil {
		for {
			old := q.retired.Load()
			// relink onto whatever was pushed concurrently since the swap
			tail := keep
			for tail.next.Load() != nil {
				tail = tail.next.Load()
			}
			tail.next.Store(old)
			if q.retired.CompareAndSwap(old, keep) {
				return
			}
		}
	}
}
