package ready

import "sync/atomic"

// globalEpoch is the reclamation epoch shared by every Queue in the
// process. It advances once per scheduler tick via Structure.Advance.
var globalEpoch atomic.Uint64

// reclaimLag is how many epochs a retired node must age before its
// forward pointer is cleared. A Michael-Scott queue's only two potential
// readers of a freshly-retired head node are the CPU that owns it and at
// most one work-stealing neighbor (spec §4.4/§4.5), so two full epochs is
// sufficient for any in-flight traversal to have completed - this is the
// idiomatic substitute for full hazard-pointer tracking noted in
// SPEC_FULL.md's redesign notes, chosen because Go's garbage collector
// already rules out the use-after-free class of bug hazard pointers exist
// to prevent; what is left to guard is a benign but confusing data race on
// node.next, not memory safety.
const reclaimLag = 2

// CurrentEpoch returns the current global reclamation epoch.
func CurrentEpoch() uint64 {
	return globalEpoch.Load()
}
