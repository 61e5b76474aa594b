package assert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/waypoint/internal/config"
	"github.com/kode4food/waypoint/pkg/api"
)

// Wrapper wraps testify assertions with Waypoint-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
	Require *assert.Assertions
}

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 10 * time.Millisecond

// New creates a new test assertion wrapper with both assert and require from
// testify plus Waypoint-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    assert.New(t),
	}
}

// GraphValid asserts that a graph is structurally valid
func (w *Wrapper) GraphValid(g *api.Graph) {
	w.Helper()
	w.NoError(g.Validate())
	w.NotEmpty(g.Name)
	_, ok := g.GetNode(g.Entry)
	w.True(ok, "entry node %q should exist", g.Entry)
}

// GraphInvalid asserts that a graph is invalid and returns the validation
// error
func (w *Wrapper) GraphInvalid(g *api.Graph, contains string) error {
	w.Helper()
	err := g.Validate()
	w.Error(err)
	w.ErrorIs(err, api.ErrInvalidGraph)
	if err != nil && contains != "" {
		w.Contains(err.Error(), contains)
	}
	return err
}

// RunStatus asserts the status of a run
func (w *Wrapper) RunStatus(r *api.Run, expected api.RunStatus) {
	w.Helper()
	if w.NotNil(r) {
		w.Equal(expected, r.Status, "run error: %s", r.Error)
	}
}

// RunStateEquals asserts that a state key of a run has the expected value
func (w *Wrapper) RunStateEquals(r *api.Run, key string, expected any) {
	w.Helper()
	val, ok := r.State[key]
	w.True(ok, "run should have state key: %s", key)
	w.Equal(expected, val)
}

// RunVisited asserts the exact sequence of nodes recorded in a run's log
func (w *Wrapper) RunVisited(r *api.Run, nodes ...api.NodeID) {
	w.Helper()
	visited := make([]api.NodeID, 0, len(r.Log))
	for _, e := range r.Log {
		visited = append(visited, e.NodeID)
	}
	w.Equal(nodes, visited)
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= 65535)
	w.True(cfg.StepTimeout > 0)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if err != nil && contains != "" {
		w.Contains(err.Error(), contains)
	}
}

// Eventually runs a condition repeatedly until it passes or times out
func (w *Wrapper) Eventually(
	condition func() bool, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(DefaultRetryInterval)
	}
	w.Fail(msg, args...)
}

// EventuallyWithError runs a condition that returns an error until it
// succeeds or times out
func (w *Wrapper) EventuallyWithError(
	condition func() error, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		err := condition()
		if err == nil {
			return
		}
		lastErr = err
		time.Sleep(DefaultRetryInterval)
	}
	if lastErr != nil {
		w.Fail(msg+": last error: "+lastErr.Error(), args...)
		return
	}
	w.Fail(msg, args...)
}
