// Package stackpool implements the size-classed stack allocator of spec
// §4.3: fixed size-class free lists (Small/Medium/Large/Custom), a canary
// word checked on every context-switch-out, double-free detection via a
// per-stack freed flag, and - on linux with the mmu build tag - real
// guard pages mapped inaccessible via mmap/mprotect instead of a
// software-only canary.
package stackpool
