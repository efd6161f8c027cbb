// Package kmutex implements the one-word CAS mutex of spec §4.7: a single
// atomic state word (unlocked/locked/locked-with-waiters), a bounded
// exponential-backoff spin before blocking, and an RAII-style guard.
package kmutex
