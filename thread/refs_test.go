package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NathanVRyver/preemptive-threads/arch"
	"github.com/NathanVRyver/preemptive-threads/stackpool"
)

func newReadyTestThread(t *testing.T) *Thread {
	t.Helper()
	pool := stackpool.NewPool(0)
	th, _, err := NewBuilder().Spawn(NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	require.NoError(t, err)
	return th
}

func TestReadyRef_ScheduleTransitionsToRunning(t *testing.T) {
	th := newReadyTestThread(t)
	rr := NewReadyRef(th)
	assert.Equal(t, Ready, th.State())

	running := rr.Schedule(1000)
	assert.Equal(t, Running, th.State())
	assert.Equal(t, th.Id(), running.Id())
}

func TestRunningRef_PreemptClosesSliceAndReturnsReady(t *testing.T) {
	th := newReadyTestThread(t)
	running := NewReadyRef(th).Schedule(0)

	back := running.Preempt(th.TimeSlice().QuantumNs())
	assert.Equal(t, Ready, th.State())
	assert.Greater(t, th.TimeSlice().Vruntime(), uint64(0))
	assert.Equal(t, th.Id(), back.Id())
}

func TestRunningRef_YieldBehavesLikePreempt(t *testing.T) {
	th := newReadyTestThread(t)
	running := NewReadyRef(th).Schedule(0)
	back := running.Yield(500)
	assert.Equal(t, Ready, th.State())
	assert.Equal(t, th.Id(), back.Id())
}

func TestRunningRef_BlockAndWake(t *testing.T) {
	th := newReadyTestThread(t)
	running := NewReadyRef(th).Schedule(0)

	running.Block(100)
	assert.Equal(t, Blocked, th.State())

	woken := Wake(th)
	assert.Equal(t, Ready, th.State())
	assert.Equal(t, th.Id(), woken.Id())
}

func TestRunningRef_FinishWakesJoiners(t *testing.T) {
	th := newReadyTestThread(t)
	running := NewReadyRef(th).Schedule(0)

	done := make(chan struct{})
	go func() {
		<-th.finishedCh
		close(done)
	}()

	running.Finish(42, nil)
	<-done
	assert.Equal(t, Finished, th.State())
}
