package arch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftware_InitStackAndSwitch(t *testing.T) {
	sw := NewSoftware()

	var ran bool
	var exitRecovered any
	exited := make(chan struct{})

	threadCtx := &SavedContext{}
	sw.InitStack(threadCtx, func() {
		ran = true
	}, func(recovered any) {
		exitRecovered = recovered
		close(exited)
	})

	require.True(t, threadCtx.Resumable())

	cpuCtx := &SavedContext{}
	sw.FirstSwitch(cpuCtx, threadCtx)

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("thread goroutine never called exit")
	}

	assert.True(t, ran)
	assert.Nil(t, exitRecovered)
}

func TestSoftware_PanicRecoveredByTrampoline(t *testing.T) {
	sw := NewSoftware()

	exited := make(chan any, 1)
	threadCtx := &SavedContext{}
	sw.InitStack(threadCtx, func() {
		panic("boom")
	}, func(recovered any) {
		exited <- recovered
	})

	cpuCtx := &SavedContext{}
	sw.FirstSwitch(cpuCtx, threadCtx)

	select {
	case v := <-exited:
		assert.Equal(t, "boom", v)
	case <-time.After(time.Second):
		t.Fatal("exit never called")
	}
}

func TestSoftware_ContextSwitchRoundTrip(t *testing.T) {
	sw := NewSoftware()

	cpuCtx := &SavedContext{}
	aCtx := &SavedContext{}
	bCtx := &SavedContext{}

	var order []string
	done := make(chan struct{})

	sw.InitStack(bCtx, func() {
		order = append(order, "b")
	}, func(any) {
		sw.ContextSwitch(bCtx, aCtx)
	})

	sw.InitStack(aCtx, func() {
		order = append(order, "a-start")
		sw.ContextSwitch(aCtx, bCtx)
		order = append(order, "a-resumed")
	}, func(any) {
		close(done)
	})

	sw.FirstSwitch(cpuCtx, aCtx)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("round trip never completed")
	}

	assert.Equal(t, []string{"a-start", "b", "a-resumed"}, order)
}

func TestSoftware_ContextSwitchRejectsNonResumable(t *testing.T) {
	sw := NewSoftware()
	assert.Panics(t, func() {
		sw.ContextSwitch(&SavedContext{}, &SavedContext{})
	})
}

func TestInterruptGuardState(t *testing.T) {
	EnableInterrupts()
	assert.True(t, InterruptsEnabled())

	prev := DisableInterrupts()
	assert.True(t, prev)
	assert.False(t, InterruptsEnabled())

	RestoreInterrupts(prev)
	assert.True(t, InterruptsEnabled())
}
