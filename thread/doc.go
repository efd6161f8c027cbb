// Package thread implements the lifecycle, state machine, and time-slice
// accounting of a schedulable unit of execution: ThreadId generation,
// ThreadState transitions, the Thread object itself (shared ownership
// between a running/ready reference and a JoinHandle), TimeSlice fair-share
// accounting, and the ReadyRef/RunningRef typestate wrappers that make an
// invalid state transition a compile error rather than a runtime bug.
package thread
