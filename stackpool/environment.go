package stackpool

import (
	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/pbnjay/memory"
)

// poolFraction is the share of the effective memory limit this module
// budgets for stack slabs, leaving the rest for the embedder's own
// allocations.
const poolFraction = 4

// NewPoolFromEnvironment constructs a Pool sized from the host's effective
// memory limit: the cgroup limit when running under one, falling back to
// total system memory otherwise. This lets OutOfMemory trip proactively at
// slab-carve time on a constrained container instead of only surfacing as
// a failed allocation deep in a host that silently OOM-kills the process.
func NewPoolFromEnvironment() *Pool {
	limit, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(0.9),
		memlimit.WithProvider(memlimit.FromCgroupHybrid),
	)
	if err != nil || limit <= 0 {
		limit = int64(memory.TotalMemory())
	}
	if limit <= 0 {
		return NewPool(0)
	}
	return NewPool(uint64(limit) / poolFraction)
}
