package thread

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NathanVRyver/preemptive-threads/arch"
	"github.com/NathanVRyver/preemptive-threads/stackpool"
)

func TestBuilder_DefaultsAndChaining(t *testing.T) {
	pool := stackpool.NewPool(0)
	th, handle, err := NewBuilder().
		Priority(200).
		Name("test-thread").
		StackSizeClass(stackpool.Medium).
		Spawn(NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	require.NoError(t, err)
	defer handle.Detach()

	assert.Equal(t, uint8(200), th.Priority())
	assert.Equal(t, "test-thread", th.Name())
	assert.Equal(t, stackpool.Medium, th.Stack().Class())
}

func TestBuilder_StackSizeSelectsSmallestClass(t *testing.T) {
	pool := stackpool.NewPool(0)

	th1, h1, err := NewBuilder().StackSize(32 * 1024).Spawn(NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	require.NoError(t, err)
	defer h1.Detach()
	assert.Equal(t, stackpool.Medium, th1.Stack().Class())

	th2, h2, err := NewBuilder().StackSize(1024).Spawn(NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	require.NoError(t, err)
	defer h2.Detach()
	assert.Equal(t, stackpool.Small, th2.Stack().Class())

	th3, h3, err := NewBuilder().StackSize(1024 * 1024).Spawn(NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	require.NoError(t, err)
	defer h3.Detach()
	assert.Equal(t, stackpool.Custom, th3.Stack().Class())
	assert.Equal(t, 1024*1024, th3.Stack().Size())
}

func TestBuilder_NilEntryIsInvalidConfig(t *testing.T) {
	pool := stackpool.NewPool(0)
	_, _, err := NewBuilder().Spawn(NextThreadId(), pool, arch.NewSoftware(), nil, func(any) {})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuilder_OutOfMemoryPropagates(t *testing.T) {
	pool := stackpool.NewPool(uint64(stackpool.Small.Bytes())) // smaller than one slab
	_, _, err := NewBuilder().Spawn(NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	assert.True(t, errors.Is(err, ErrOutOfMemory))
}

func TestBuilder_WithQuantumOverride(t *testing.T) {
	pool := stackpool.NewPool(0)
	th, handle, err := NewBuilder().WithQuantum(2500).Spawn(NextThreadId(), pool, arch.NewSoftware(), func() {}, func(any) {})
	require.NoError(t, err)
	defer handle.Detach()
	assert.Equal(t, uint64(2500), th.TimeSlice().QuantumNs())
}
