package arch

// Memory barrier helpers. Go's sync/atomic already attaches acquire/release
// semantics to every individual atomic operation used throughout this
// module, so a bare fence instruction has no portable Go equivalent and
// none is needed for correctness here - these functions exist so call
// sites that mirror the spec's documented barrier points (§4.1) read the
// same way the spec describes them, and so a future assembly-backed
// ContextSwitcher has an obvious place to put a real fence.
//
// FullBarrier, AcquireBarrier, and ReleaseBarrier are distinguished only in
// name; LoadBarrier aliases AcquireBarrier and StoreBarrier aliases
// ReleaseBarrier, per spec §4.1 ("load-only and store-only alias to the
// corresponding half-barriers").
func FullBarrier() {}

func AcquireBarrier() {}

func ReleaseBarrier() {}

// LoadBarrier aliases AcquireBarrier.
func LoadBarrier() { AcquireBarrier() }

// StoreBarrier aliases ReleaseBarrier.
func StoreBarrier() { ReleaseBarrier() }

// FlushDCacheRange performs cache maintenance for stack initialization on
// weakly ordered ISAs (spec §4.1). Go's memory model gives every goroutine
// a coherent view of memory without explicit cache maintenance, so this is
// a documented no-op on the Software backend.
func FlushDCacheRange(start uintptr, length uintptr) {}

// FlushICache is the instruction-cache counterpart of FlushDCacheRange,
// needed on real hardware after writing a new trampoline into a fresh
// stack. Software never writes executable code into memory, so this is a
// no-op.
func FlushICache() {}
