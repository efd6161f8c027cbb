package ready

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NathanVRyver/preemptive-threads/arch"
	"github.com/NathanVRyver/preemptive-threads/stackpool"
	"github.com/NathanVRyver/preemptive-threads/thread"
)

func newTestThread(t *testing.T, priority uint8) *thread.Thread {
	t.Helper()
	pool := stackpool.NewPool(0)
	th, _, err := thread.NewBuilder().Priority(priority).Spawn(thread.NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	require.NoError(t, err)
	return th
}

func TestQueue_FIFOOrder(t *testing.T) {
	q := NewQueue()
	a := newTestThread(t, 1)
	b := newTestThread(t, 1)
	c := newTestThread(t, 1)

	q.Push(a)
	q.Push(b)
	q.Push(c)

	assert.Equal(t, a, q.Pop())
	assert.Equal(t, b, q.Pop())
	assert.Equal(t, c, q.Pop())
	assert.Nil(t, q.Pop())
}

func TestQueue_EmptyPopReturnsNil(t *testing.T) {
	q := NewQueue()
	assert.Nil(t, q.Pop())
	assert.True(t, q.IsEmpty())
}

func TestQueue_ConcurrentPushPop(t *testing.T) {
	q := NewQueue()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		th := newTestThread(t, 1)
		go func() {
			defer wg.Done()
			q.Push(th)
		}()
	}
	wg.Wait()

	got := 0
	for q.Pop() != nil {
		got++
	}
	assert.Equal(t, n, got)
}

func TestQueue_ReclaimClearsAgedRetiredNodes(t *testing.T) {
	q := NewQueue()
	th := newTestThread(t, 1)
	q.Push(th)
	q.Pop()

	for i := 0; i < reclaimLag+1; i++ {
		globalEpoch.Add(1)
	}
	q.reclaim()
	assert.Nil(t, q.retired.Load())
}
