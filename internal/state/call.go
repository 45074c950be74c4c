package state

import (
	"context"
	"time"

	"github.com/picoHz/taxy-sub001/internal/apierr"
)

// enqueueTimeout bounds how long Call waits for room on the command
// queue before giving up with Busy (§5: "fails with Busy after a
// short timeout"), independent of whatever deadline the caller's own
// ctx carries.
const enqueueTimeout = 2 * time.Second

// Command is anything the control loop's command queue can carry. It
// is unexported so that only this package can apply a Command to a
// State; callers only ever see the generic Call helper below, which
// keeps the rpc package free to define method values without
// importing state at all.
type Command interface {
	apply(s *State)
}

// callResult carries a typed Call outcome back to its caller.
type callResult[R any] struct {
	val R
	err error
}

// call boxes a closure over *State plus a reply channel, erasing R at
// the Command interface boundary while keeping it concrete for the
// caller of Call. This is the generics-based equivalent of the boxed
// trait-object dispatch a dynamically typed RPC layer would use.
type call[R any] struct {
	fn    func(*State) (R, error)
	reply chan callResult[R]
}

func (c *call[R]) apply(s *State) {
	val, err := c.fn(s)
	c.reply <- callResult[R]{val: val, err: err}
}

// Call submits fn to run on the control loop that owns queue and waits
// for its result. fn runs with exclusive access to *State: it must not
// retain s or any value reachable through it beyond its own return.
// Admin handlers and the ACME scheduler are the two callers of Call;
// neither ever touches State directly otherwise.
func Call[R any](ctx context.Context, queue chan<- Command, fn func(*State) (R, error)) (R, error) {
	c := &call[R]{fn: fn, reply: make(chan callResult[R], 1)}

	enqueueCtx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()

	select {
	case queue <- c:
	case <-enqueueCtx.Done():
		var zero R
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, apierr.New(apierr.Busy, "command queue is full, try again shortly")
	}

	select {
	case res := <-c.reply:
		return res.val, res.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}
