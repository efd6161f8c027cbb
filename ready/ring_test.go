package ready

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NathanVRyver/preemptive-threads/thread"
)

func TestRing_EnqueueDequeueOrder(t *testing.T) {
	r := newRing()
	th1 := newTestThread(t, 1)
	th2 := newTestThread(t, 1)

	assert.True(t, r.tryEnqueue(th1))
	assert.True(t, r.tryEnqueue(th2))
	assert.Equal(t, 2, r.length())

	assert.Equal(t, th1, r.tryDequeue())
	assert.Equal(t, th2, r.tryDequeue())
	assert.Nil(t, r.tryDequeue())
	assert.True(t, r.isEmpty())
}

func TestRing_RejectsEnqueueWhenFull(t *testing.T) {
	r := newRing()
	for i := 0; i < ringCapacity; i++ {
		ok := r.tryEnqueue(newTestThread(t, 1))
		assert.True(t, ok)
	}
	assert.False(t, r.tryEnqueue(newTestThread(t, 1)))
}

// TestRing_ConcurrentProducersConsumersLoseNothing drives many producers
// and consumers across several full laps of the ring concurrently: every
// enqueued thread must be dequeued exactly once, none lost and none
// observed twice. This is the regression test for the lost-thread race in
// the old reserve-then-store + nil-on-pop scheme, where a dequeuer
// preempted between its head-CAS and its Store(nil) could clobber a value
// a later same-slot enqueuer had already published once the ring wrapped a
// full lap underneath it.
func TestRing_ConcurrentProducersConsumersLoseNothing(t *testing.T) {
	r := newRing()

	const producers = 8
	const consumers = 8
	const perProducer = 500 // several full laps of ringCapacity=32
	const total = producers * perProducer

	threads := make([]*thread.Thread, total)
	index := make(map[*thread.Thread]int, total)
	for i := range threads {
		threads[i] = newTestThread(t, 1)
		index[threads[i]] = i
	}

	var nextIdx atomic.Int64
	var wgProd sync.WaitGroup
	wgProd.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wgProd.Done()
			for {
				i := nextIdx.Add(1) - 1
				if i >= int64(total) {
					return
				}
				for !r.tryEnqueue(threads[i]) {
					// Ring momentarily full; spin until a consumer drains it.
				}
			}
		}()
	}

	seen := make([]atomic.Int32, total)
	var seenCount atomic.Int64
	allDone := make(chan struct{})
	var closeOnce sync.Once

	var wgCons sync.WaitGroup
	wgCons.Add(consumers)
	for c := 0; c < consumers; c++ {
		go func() {
			defer wgCons.Done()
			for {
				if v := r.tryDequeue(); v != nil {
					idx, ok := index[v]
					if !ok {
						t.Errorf("dequeued a thread never enqueued by this test")
						continue
					}
					if seen[idx].Add(1) != 1 {
						t.Errorf("thread index %d dequeued more than once", idx)
					}
					if seenCount.Add(1) == int64(total) {
						closeOnce.Do(func() { close(allDone) })
					}
					continue
				}
				select {
				case <-allDone:
					return
				default:
				}
			}
		}()
	}

	wgProd.Wait()
	wgCons.Wait()

	for i := range seen {
		if seen[i].Load() != 1 {
			t.Fatalf("thread index %d seen %d times, want exactly 1", i, seen[i].Load())
		}
	}
}
