package thread

import (
	"context"
	"errors"
	"time"
)

// ErrJoinTimeout is returned by JoinHandle.JoinTimeout when the deadline
// elapses before the target thread reaches Finished.
var ErrJoinTimeout = errors.New("thread: join timed out")

// JoinHandle lets a caller wait for a thread to finish and retrieve its
// result (spec §3/§4.6's join protocol). The handle holds one reference on
// the thread, released by Join, a successful JoinTimeout, or Detach. A
// handle that is dropped without any of these keeps that reference: the
// thread still runs to completion, but its stack is never returned to the
// pool.
type JoinHandle struct {
	t *Thread
}

func newJoinHandle(t *Thread) *JoinHandle {
	t.retain()
	return &JoinHandle{t: t}
}

// Id returns the target thread's identifier.
func (h *JoinHandle) Id() ThreadId { return h.t.Id() }

// Join blocks until the thread reaches Finished and returns its result, or
// the fatal error that finished it (e.g. a detected stack overflow).
func (h *JoinHandle) Join() (any, error) {
	defer h.t.release()
	return h.t.outcome()
}

// JoinTimeout blocks until the thread finishes, the deadline elapses, or
// ctx is done, whichever comes first (SPEC_FULL.md supplement over the
// bare join protocol). On timeout it returns ErrJoinTimeout and the handle
// remains usable for a later Join/JoinTimeout call.
func (h *JoinHandle) JoinTimeout(ctx context.Context, d time.Duration) (any, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-h.t.finishedCh:
		defer h.t.release()
		return h.t.outcome()
	case <-timer.C:
		return nil, ErrJoinTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Detach releases this handle's reference without waiting for the thread
// to finish, explicitly mirroring the reference behavior a dropped handle
// has in the original RAII design.
func (h *JoinHandle) Detach() {
	h.t.release()
}
