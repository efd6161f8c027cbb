package thread

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NathanVRyver/preemptive-threads/arch"
	"github.com/NathanVRyver/preemptive-threads/stackpool"
)

func spawnTestThread(t *testing.T, entry func(), priority uint8) (*Thread, *JoinHandle) {
	t.Helper()
	pool := stackpool.NewPool(0)
	switcher := arch.NewSoftware()

	th, handle, err := NewBuilder().Priority(priority).Spawn(NextThreadId(), pool, switcher, entry, func(any) {})
	require.NoError(t, err)
	return th, handle
}

func TestThread_LifecycleRunToFinish(t *testing.T) {
	pool := stackpool.NewPool(0)
	switcher := arch.NewSoftware()

	ran := make(chan struct{})
	var th *Thread
	var idleCtx arch.SavedContext
	th, handle, err := NewBuilder().Name("worker").Spawn(NextThreadId(), pool, switcher, func() {
		close(ran)
	}, func(recovered any) {
		RunningRef{t: th}.Finish(nil, nil)
		// Hand control back to the idle "CPU" goroutine below, the way
		// the kernel's exit path would switch into whatever runs next.
		switcher.ContextSwitch(th.Context(), &idleCtx)
	})
	require.NoError(t, err)

	switcher.FirstSwitch(&idleCtx, th.Context())

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("entry never ran")
	}

	res, err := handle.Join()
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestThread_PriorityAndPreemptibleAccessors(t *testing.T) {
	th, _ := spawnTestThread(t, func() {}, 200)
	assert.Equal(t, uint8(200), th.Priority())

	th.SetPriority(50)
	assert.Equal(t, uint8(50), th.Priority())

	assert.True(t, th.Preemptible())
	th.SetPreemptible(false)
	assert.False(t, th.Preemptible())
}

func TestThread_NameAndNice(t *testing.T) {
	th, _ := spawnTestThread(t, func() {}, defaultPriority)
	assert.Equal(t, "", th.Name())
	th.SetName("alpha")
	assert.Equal(t, "alpha", th.Name())

	th.SetNice(-5)
	assert.Equal(t, int8(-5), th.Nice())
}

func TestThread_StackIntegrity(t *testing.T) {
	th, _ := spawnTestThread(t, func() {}, defaultPriority)
	assert.True(t, th.CheckStackIntegrity())
	th.Stack().CorruptCanary()
	assert.False(t, th.CheckStackIntegrity())
}

func TestThread_FinishReleasesJoinResult(t *testing.T) {
	pool := stackpool.NewPool(0)
	th, handle, err := NewBuilder().Spawn(NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	require.NoError(t, err)

	rr := RunningRef{t: th}
	rr.Finish("done", nil)

	res, err := handle.Join()
	require.NoError(t, err)
	assert.Equal(t, "done", res)
	assert.Equal(t, Finished, th.State())
}

func TestThread_FinishWithFatalError(t *testing.T) {
	pool := stackpool.NewPool(0)
	th, handle, err := NewBuilder().Spawn(NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	require.NoError(t, err)

	fatal := errors.New("stack overflow")
	rr := RunningRef{t: th}
	rr.Finish(nil, fatal)

	_, err = handle.Join()
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, Finished, th.State())
}
