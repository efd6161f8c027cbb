package thread

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NathanVRyver/preemptive-threads/arch"
	"github.com/NathanVRyver/preemptive-threads/stackpool"
)

func TestJoinHandle_JoinBlocksUntilFinished(t *testing.T) {
	pool := stackpool.NewPool(0)
	th, handle, err := NewBuilder().Spawn(NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	require.NoError(t, err)

	done := make(chan struct{})
	var result any
	go func() {
		result, _ = handle.Join()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("join returned before thread finished")
	default:
	}

	RunningRef{t: th}.Finish("ok", nil)
	<-done
	assert.Equal(t, "ok", result)
}

func TestJoinHandle_JoinTimeoutExpires(t *testing.T) {
	pool := stackpool.NewPool(0)
	_, handle, err := NewBuilder().Spawn(NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	require.NoError(t, err)

	_, err = handle.JoinTimeout(context.Background(), 5*time.Millisecond)
	assert.ErrorIs(t, err, ErrJoinTimeout)
}

func TestJoinHandle_JoinTimeoutSucceedsWhenFinishedInTime(t *testing.T) {
	pool := stackpool.NewPool(0)
	th, handle, err := NewBuilder().Spawn(NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	require.NoError(t, err)

	go func() {
		time.Sleep(5 * time.Millisecond)
		RunningRef{t: th}.Finish("fast", nil)
	}()

	res, err := handle.JoinTimeout(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "fast", res)
}

func TestJoinHandle_Detach(t *testing.T) {
	pool := stackpool.NewPool(0)
	_, handle, err := NewBuilder().Spawn(NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	require.NoError(t, err)
	handle.Detach()
}
