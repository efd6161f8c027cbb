// Package ready implements the lock-free ready-to-run structure of spec
// §4.4: a 32-level priority bitmap over per-priority circular buffers (with
// an overflow list for the rare case a buffer fills), plus a per-CPU
// Michael-Scott FIFO local queue used for cache-local fast-path scheduling.
package ready
