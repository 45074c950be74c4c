package admin

import (
	"context"

	"github.com/picoHz/taxy-sub001/internal/state"
)

// dispatch submits method to the control loop through state.Dispatch
// and type-asserts its result to R. Every handler builds the rpc
// method value for its own operation and hands it here, rather than
// writing its own closure over the matching Apply* call.
func dispatch[R any](ctx context.Context, queue chan<- state.Command, method any) (R, error) {
	return state.Call(ctx, queue, func(st *state.State) (R, error) {
		result, err := state.Dispatch(st, method)
		if err != nil {
			var zero R
			return zero, err
		}
		return result.(R), nil
	})
}
