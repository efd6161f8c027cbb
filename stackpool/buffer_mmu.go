//go:build linux && mmu

package stackpool

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// newBuffer maps a stack's backing storage with a real inaccessible guard
// page immediately ahead of it, per spec §4.3's mmu branch. A touch into
// the guard page raises SIGSEGV instead of silently scribbling over
// whatever memory happened to sit there - the canary word in stack.go
// remains the line of defense for builds without this tag.
func newBuffer(size int) ([]byte, func(), error) {
	pageSize := os.Getpagesize()
	usable := roundUp(size, pageSize)
	total := pageSize + usable

	region, err := unix.Mmap(-1, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANONYMOUS|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("stackpool: mmap guard region: %w", err)
	}

	guard := region[:pageSize]
	if err := unix.Mprotect(guard, unix.PROT_NONE); err != nil {
		_ = unix.Munmap(region)
		return nil, nil, fmt.Errorf("stackpool: mprotect guard page: %w", err)
	}

	buf := region[pageSize : pageSize+size]
	release := func() {
		_ = unix.Munmap(region)
	}
	return buf, release, nil
}

func roundUp(n, multiple int) int {
	if n%multiple == 0 {
		return n
	}
	return n + (multiple - n%multiple)
}
