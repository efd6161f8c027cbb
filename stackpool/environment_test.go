package stackpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoolFromEnvironment_UsableForAllocation(t *testing.T) {
	p := NewPoolFromEnvironment()
	require.NotNil(t, p)

	s, err := p.Allocate(Small)
	require.NoError(t, err)
	assert.True(t, s.CheckCanary())
	require.NoError(t, p.Deallocate(s))
}
