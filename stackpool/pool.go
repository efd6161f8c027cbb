package stackpool

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrOutOfMemory is returned when carving a new slab would exceed the
// pool's memory budget (spec §4.6 SpawnError::OutOfMemory).
var ErrOutOfMemory = errors.New("stackpool: out of memory")

// ErrInvalidStackSize is returned for a non-positive custom stack request.
var ErrInvalidStackSize = errors.New("stackpool: invalid stack size")

// ErrInvalidFree is returned by Deallocate on a Stack that was already
// deallocated, detected via the per-stack freed flag (spec §4.3's
// "double-free is detected via a per-slot epoch counter").
var ErrInvalidFree = errors.New("stackpool: invalid free: double free detected")

const defaultSlabSlots = 8

// slot is a free-list node wrapping a pooled Stack. A fresh slot is
// allocated each time a Stack returns to the free list; the Stack itself,
// not the slot, is what gets reused.
type slot struct {
	stack *Stack
	next  atomic.Pointer[slot]
}

// classPool is the lock-free free list (a Treiber stack) for one standard
// size class, plus the slab-carving machinery that backs it. Pop/push are
// the CAS loops; carving a new slab takes classPool.mu, since carving is a
// rare, heavier operation (spec §4.3 "On first allocation of a class, a
// backing region is carved and divided into slots").
type classPool struct {
	class     SizeClass
	entrySize int // class.Bytes() + 8 (canary word)
	slabSlots int

	free atomic.Pointer[slot]
	mu   sync.Mutex
}

func (cp *classPool) pop() *slot {
	for {
		head := cp.free.Load()
		if head == nil {
			return nil
		}
		next := head.next.Load()
		if cp.free.CompareAndSwap(head, next) {
			return head
		}
	}
}

func (cp *classPool) push(s *slot) {
	for {
		head := cp.free.Load()
		s.next.Store(head)
		if cp.free.CompareAndSwap(head, s) {
			return
		}
	}
}

// Pool is the size-classed stack allocator described in spec §4.3. It
// tracks total carved bytes against an optional memory budget, sourced at
// construction from the host's effective cgroup/system memory via
// github.com/KimMachineGun/automemlimit and github.com/pbnjay/memory (see
// NewPoolFromEnvironment), so OutOfMemory is reported proactively on slab
// carve rather than only surfacing as an allocation failure deep in a
// syscall.
type Pool struct {
	memLimitBytes  uint64 // 0 = unlimited
	allocatedBytes atomic.Int64

	small, medium, large *classPool
}

// NewPool constructs a Pool with an explicit memory budget in bytes (0 for
// unlimited).
func NewPool(memLimitBytes uint64) *Pool {
	mk := func(c SizeClass) *classPool {
		return &classPool{class: c, entrySize: c.Bytes() + 8, slabSlots: defaultSlabSlots}
	}
	return &Pool{
		memLimitBytes: memLimitBytes,
		small:         mk(Small),
		medium:        mk(Medium),
		large:         mk(Large),
	}
}

func (p *Pool) classFor(c SizeClass) *classPool {
	switch c {
	case Small:
		return p.small
	case Medium:
		return p.medium
	case Large:
		return p.large
	default:
		panic("stackpool: classFor called with non-standard size class")
	}
}

func (p *Pool) reserve(n int) error {
	for {
		cur := p.allocatedBytes.Load()
		next := cur + int64(n)
		if p.memLimitBytes != 0 && uint64(next) > p.memLimitBytes {
			return ErrOutOfMemory
		}
		if p.allocatedBytes.CompareAndSwap(cur, next) {
			return nil
		}
	}
}

func (p *Pool) release(n int) {
	p.allocatedBytes.Add(-int64(n))
}

func (p *Pool) carveSlab(cp *classPool) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	slabBytes := cp.slabSlots * cp.entrySize
	if err := p.reserve(slabBytes); err != nil {
		return err
	}

	for i := 0; i < cp.slabSlots; i++ {
		buf, release, err := newBuffer(cp.entrySize)
		if err != nil {
			return err
		}
		st := &Stack{
			class:   cp.class,
			size:    cp.entrySize - 8,
			buf:     buf,
			release: release,
		}
		st.writeCanary()
		cp.push(&slot{stack: st})
	}
	return nil
}

// Allocate returns a zeroed stack, canary set, for the given standard size
// class (spec §4.3 contract). Use AllocateCustom for a non-standard size.
func (p *Pool) Allocate(class SizeClass) (*Stack, error) {
	if class == Custom {
		panic("stackpool: Allocate called with Custom; use AllocateCustom")
	}
	cp := p.classFor(class)

	sl := cp.pop()
	if sl == nil {
		if err := p.carveSlab(cp); err != nil {
			return nil, err
		}
		sl = cp.pop()
		if sl == nil {
			return nil, ErrOutOfMemory
		}
	}

	st := sl.stack
	clear(st.buf[8:])
	st.writeCanary()
	st.freed.Store(false)
	st.watermark.Store(0)
	return st, nil
}

// AllocateCustom returns a one-off, unpooled stack of the requested size in
// bytes (spec §6 STACK_CLASSES "or custom").
func (p *Pool) AllocateCustom(size int) (*Stack, error) {
	if size <= 0 {
		return nil, ErrInvalidStackSize
	}
	if err := p.reserve(size + 8); err != nil {
		return nil, err
	}
	buf, release, err := newBuffer(size + 8)
	if err != nil {
		p.release(size + 8)
		return nil, err
	}
	st := &Stack{class: Custom, size: size, buf: buf, release: release}
	st.writeCanary()
	return st, nil
}

// Deallocate returns a stack to its class's free list (or, for Custom,
// releases its memory reservation), detecting a double free via the
// stack's freed flag and returning ErrInvalidFree.
func (p *Pool) Deallocate(s *Stack) error {
	if !s.freed.CompareAndSwap(false, true) {
		return ErrInvalidFree
	}
	if s.class == Custom {
		if s.release != nil {
			s.release()
		}
		p.release(s.size + 8)
		return nil
	}
	cp := p.classFor(s.class)
	cp.push(&slot{stack: s})
	return nil
}

// PoolStats summarizes the allocator's memory accounting.
type PoolStats struct {
	AllocatedBytes int64
	MemLimitBytes  uint64
}

// Stats returns a snapshot of the pool's memory accounting.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		AllocatedBytes: p.allocatedBytes.Load(),
		MemLimitBytes:  p.memLimitBytes,
	}
}
