package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kode4food/waypoint/pkg/api"
)

const defaultWaitTimeout = 5 * time.Second

// WaitForRun blocks until a run reaches a terminal status and returns its
// final snapshot
func (env *TestEngineEnv) WaitForRun(
	t *testing.T, ctx context.Context, id api.RunID, timeout time.Duration,
) *api.Run {
	t.Helper()

	sub := env.Hub.SubscribeRun(id)
	defer sub.Close()

	if r, err := env.Engine.GetResult(ctx, id); err == nil {
		return r
	}

	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-sub.Events():
			if ok && !ev.IsTerminal() {
				continue
			}
			r, err := env.Engine.GetResult(ctx, id)
			require.NoError(t, err)
			return r
		case <-deadline:
			t.Fatalf("timeout waiting for run %s", id)
		case <-ctx.Done():
			t.FailNow()
		}
	}
}

// WaitForStatus polls until a run reports the expected status
func (env *TestEngineEnv) WaitForStatus(
	t *testing.T, id api.RunID, status api.RunStatus, timeout time.Duration,
) *api.Run {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		r, err := env.Engine.GetRun(context.Background(), id)
		if err == nil && r.Status == status {
			return r
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for run %s to become %s", id, status)
	return nil
}
