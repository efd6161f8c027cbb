package stackpool

import (
	"encoding/binary"
	"sync/atomic"
)

// canaryMagic is the fixed value written at the base of every stack,
// matching the reference implementation's stack_guard.rs default.
const canaryMagic uint64 = 0xDEADBEEFCAFEBABE

// Stack is a contiguous byte region with a recorded base, top, and size
// class, laid out per spec §4.3:
//
//	[ guard region | canary word | usable stack ... | top ]
//
// Bytes 0-7 of the buffer hold the canary word; the usable region, which
// Base returns, starts immediately after it. The "guard region" ahead of the
// canary is only physically present (as an inaccessible mmap'd page) when
// built with the mmu tag on linux; otherwise it is conceptual and the
// canary word is the sole overflow detector, per spec §4.3's "otherwise"
// clause.
type Stack struct {
	class   SizeClass
	size    int // usable size, excluding the canary word
	buf     []byte
	release func() // unmaps the mmu guard region; no-op on the default build

	freed atomic.Bool // set true by Pool.Deallocate; a second Deallocate is InvalidFree

	watermark atomic.Uint64 // highest observed usage, for Stats
}

// Class reports the stack's size class.
func (s *Stack) Class() SizeClass { return s.class }

// Size reports the usable stack size in bytes, excluding the canary word.
func (s *Stack) Size() int { return s.size }

// Base returns the usable stack memory (immediately above the canary
// word), exposed so test and demo code can simulate a thread touching its
// own stack, including deliberately corrupting the canary for Scenario D.
func (s *Stack) Base() []byte {
	return s.buf[8:]
}

func (s *Stack) writeCanary() {
	binary.LittleEndian.PutUint64(s.buf[:8], canaryMagic)
}

// CheckCanary reports whether the canary word still holds its magic value.
// Spec §4.3/§4.6/§8 invariant 6: checked at the instant before a
// context-switch-out; a mismatch is a fatal StackOverflow for that thread.
func (s *Stack) CheckCanary() bool {
	return binary.LittleEndian.Uint64(s.buf[:8]) == canaryMagic
}

// CorruptCanary deliberately overwrites the canary word, for exercising the
// stack-overflow detection path (spec §8 Scenario D). Not part of the
// production API surface a well-behaved thread would call; exported for
// test and demo use the way a fault-injection harness needs it.
func (s *Stack) CorruptCanary() {
	binary.LittleEndian.PutUint64(s.buf[:8], ^canaryMagic)
}

// Stats reports usage derived from the high-water mark recorded via
// RecordUsage, supplementing the bare canary check per SPEC_FULL.md.
type Stats struct {
	UsedBytes int
	FreeBytes int
	PeakBytes int
}

// RecordUsage updates the stack's high-water mark. used is the number of
// bytes from the top of the usable region currently in use.
func (s *Stack) RecordUsage(used int) {
	for {
		cur := s.watermark.Load()
		if uint64(used) <= cur {
			return
		}
		if s.watermark.CompareAndSwap(cur, uint64(used)) {
			return
		}
	}
}

// Stats returns a snapshot of usage statistics.
func (s *Stack) Stats() Stats {
	peak := int(s.watermark.Load())
	return Stats{
		UsedBytes: peak,
		FreeBytes: s.size - peak,
		PeakBytes: peak,
	}
}
