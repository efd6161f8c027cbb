package thread

import (
	"strconv"
	"sync/atomic"
)

var nextThreadID atomic.Uint64

func init() {
	nextThreadID.Store(1)
}

// ThreadId uniquely and permanently identifies a Thread. IDs are never
// reused; generation is an atomic fetch-add starting at 1, so the zero
// value is never issued and can be used as a "no thread" sentinel.
type ThreadId uint64

// NextThreadId generates a fresh, never-reused ThreadId.
func NextThreadId() ThreadId {
	return ThreadId(nextThreadID.Add(1) - 1)
}

func (id ThreadId) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
