package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/tool"
)

// Invoker resolves tools by name and calls them with a private copy of the
// run's state
type Invoker struct {
	tools   *tool.Registry
	timeout time.Duration
}

// NewInvoker creates an Invoker. A non-positive timeout disables the
// per-call deadline
func NewInvoker(tools *tool.Registry, timeout time.Duration) *Invoker {
	return &Invoker{
		tools:   tools,
		timeout: timeout,
	}
}

// Invoke calls the tool named by the Call. An unregistered tool yields
// api.ErrToolNotFound; failures and panics raised by the tool are reported
// as *api.ToolExecutionError
func (i *Invoker) Invoke(ctx context.Context, call *tool.Call) (api.State, error) {
	fn, ok := i.tools.Get(call.Tool)
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrToolNotFound, call.Tool)
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	req := *call
	req.State = call.State.Snapshot()
	if call.Config != nil {
		req.Config = api.State(call.Config).Snapshot()
	}

	out, err := safeCall(ctx, fn, &req)
	if err != nil {
		return nil, &api.ToolExecutionError{
			Err:    err,
			NodeID: call.NodeID,
			Tool:   call.Tool,
		}
	}
	return out, nil
}

func safeCall(
	ctx context.Context, fn tool.Func, call *tool.Call,
) (out api.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrToolPanicked, r)
		}
	}()
	return fn(ctx, call)
}
