package ready

// LocalQueue is the per-CPU cache-local run queue of spec §4.4: the same
// Michael-Scott FIFO as a priority level's overflow list, held one per CPU
// by the scheduler for pick_next's fast path and for work-stealing peeks.
type LocalQueue = Queue

// NewLocalQueue returns an empty per-CPU local queue.
func NewLocalQueue() *LocalQueue {
	return NewQueue()
}
