package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NathanVRyver/preemptive-threads/arch"
	"github.com/NathanVRyver/preemptive-threads/ready"
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

func TestScheduler_PickNextPrefersLocalQueue(t *testing.T) {
	s := New(2, ready.NewStructure())
	local := newTestThread(t, 50)
	global := newTestThread(t, 50)

	s.LocalQueue(0).Push(local)
	require.NoError(t, s.Global().Enqueue(thread.NewReadyRef(global)))

	rr, ok := s.PickNext(0)
	require.True(t, ok)
	assert.Equal(t, local.Id(), rr.Id())
}

func TestScheduler_PickNextFallsBackToGlobal(t *testing.T) {
	s := New(2, ready.NewStructure())
	global := newTestThread(t, 200)
	require.NoError(t, s.Global().Enqueue(thread.NewReadyRef(global)))

	rr, ok := s.PickNext(0)
	require.True(t, ok)
	assert.Equal(t, global.Id(), rr.Id())
}

func TestScheduler_PickNextStealsFromNeighbor(t *testing.T) {
	s := New(2, ready.NewStructure())
	a := newTestThread(t, 10)
	b := newTestThread(t, 10)
	s.LocalQueue(1).Push(a)
	s.LocalQueue(1).Push(b)

	rr, ok := s.PickNext(0)
	require.True(t, ok)
	assert.Equal(t, a.Id(), rr.Id())
}

func TestScheduler_PickNextIdleWhenNothingRunnable(t *testing.T) {
	s := New(1, ready.NewStructure())
	_, ok := s.PickNext(0)
	assert.False(t, ok)
}

func TestScheduler_PickNextDoesNotStealBelowThreshold(t *testing.T) {
	s := New(2, ready.NewStructure())
	s.LocalQueue(1).Push(newTestThread(t, 10)) // only 1 entry, below stealThreshold

	_, ok := s.PickNext(0)
	assert.False(t, ok)
}

func TestScheduler_OnTick_QuantumExpiryPreempts(t *testing.T) {
	s := New(1, ready.NewStructure())
	th := newTestThread(t, 128)
	running := thread.NewReadyRef(th).Schedule(0)

	rr, preempted := s.OnTick(0, running, th.TimeSlice().QuantumNs()+1)
	assert.True(t, preempted)
	assert.Equal(t, th.Id(), rr.Id())
	assert.Equal(t, thread.Ready, th.State())
}

func TestScheduler_OnTick_KeepsRunningWithinQuantum(t *testing.T) {
	s := New(1, ready.NewStructure())
	th := newTestThread(t, 128)
	running := thread.NewReadyRef(th).Schedule(0)

	_, preempted := s.OnTick(0, running, th.TimeSlice().QuantumNs()/2)
	assert.False(t, preempted)
	assert.Equal(t, thread.Running, th.State())
}

func TestScheduler_OnTick_HigherPriorityReadyAlwaysPreemptsEvenIfNotPreemptible(t *testing.T) {
	s := New(1, ready.NewStructure())
	running := newTestThread(t, 10)
	running.SetPreemptible(false)
	rr := thread.NewReadyRef(running).Schedule(0)

	higher := newTestThread(t, 250)
	require.NoError(t, s.Global().Enqueue(thread.NewReadyRef(higher)))

	_, preempted := s.OnTick(0, rr, 1)
	assert.True(t, preempted)
}

func TestScheduler_OnTick_NonPreemptibleSuppressesQuantumExpiry(t *testing.T) {
	s := New(1, ready.NewStructure())
	th := newTestThread(t, 128)
	th.SetPreemptible(false)
	running := thread.NewReadyRef(th).Schedule(0)

	_, preempted := s.OnTick(0, running, th.TimeSlice().QuantumNs()*10)
	assert.False(t, preempted)
}

func TestScheduler_StatsReportsReadyRunningAndFinished(t *testing.T) {
	s := New(2, ready.NewStructure())

	if stats := s.Stats(); stats.Ready != 0 || stats.Finished != 0 {
		t.Fatalf("initial Stats = %+v, want zero ready/finished", stats)
	}
	for _, running := range s.Stats().RunningPerCPU {
		assert.False(t, running)
	}

	a := newTestThread(t, 10)
	s.LocalQueue(0).Push(a)
	require.NoError(t, s.Global().Enqueue(thread.NewReadyRef(newTestThread(t, 10))))

	stats := s.Stats()
	assert.Equal(t, 2, stats.Ready)

	running := newTestThread(t, 10)
	s.MarkRunning(1, running)
	stats = s.Stats()
	assert.False(t, stats.RunningPerCPU[0])
	assert.True(t, stats.RunningPerCPU[1])

	s.ClearRunning(1)
	s.MarkFinished()
	stats = s.Stats()
	assert.False(t, stats.RunningPerCPU[1])
	assert.Equal(t, int64(1), stats.Finished)
}

func TestScheduler_OnYieldAlwaysConverts(t *testing.T) {
	s := New(1, ready.NewStructure())
	th := newTestThread(t, 128)
	running := thread.NewReadyRef(th).Schedule(0)

	rr := s.OnYield(running, 1)
	assert.Equal(t, thread.Ready, th.State())
	assert.Equal(t, th.Id(), rr.Id())
}
