package assert

import (
	"testing"
	"time"

	"github.com/kode4food/waypoint/internal/config"
	"github.com/kode4food/waypoint/pkg/api"
)

func TestNew(t *testing.T) {
	wrapper := New(t)

	if wrapper.T != t {
		t.Error("Wrapper.T should be set to the testing.T instance")
	}
	if wrapper.Assertions == nil {
		t.Error("Wrapper.Assertions should be initialized")
	}
	if wrapper.Require == nil {
		t.Error("Wrapper.Require should be initialized")
	}
}

func TestGraphValid(t *testing.T) {
	w := New(t)
	w.GraphValid(&api.Graph{
		ID:    "g",
		Name:  "Graph",
		Entry: "a",
		Nodes: []*api.Node{{ID: "a"}, {ID: "b"}},
		Edges: []*api.Edge{{From: "a", To: "b"}},
	})
}

func TestGraphInvalid(t *testing.T) {
	w := New(t)
	err := w.GraphInvalid(&api.Graph{
		ID:    "g",
		Name:  "Graph",
		Entry: "missing",
		Nodes: []*api.Node{{ID: "a"}},
	}, "missing")
	w.Error(err)
}

func TestRunHelpers(t *testing.T) {
	w := New(t)
	r := &api.Run{
		Status: api.RunCompleted,
		State:  api.State{"result": "ok"},
		Log: []*api.LogEntry{
			{NodeID: "a"},
			{NodeID: "b"},
		},
	}

	w.RunStatus(r, api.RunCompleted)
	w.RunStateEquals(r, "result", "ok")
	w.RunVisited(r, "a", "b")
}

func TestConfigHelpers(t *testing.T) {
	w := New(t)
	w.ConfigValid(config.NewDefaultConfig())

	cfg := config.NewDefaultConfig()
	cfg.APIPort = 0
	w.ConfigInvalid(cfg, "invalid API port")
}

func TestEventually(t *testing.T) {
	w := New(t)
	calls := 0
	w.Eventually(func() bool {
		calls++
		return calls >= 3
	}, time.Second, "condition should eventually pass")
	w.GreaterOrEqual(calls, 3)
}

func TestEventuallyWithError(t *testing.T) {
	w := New(t)
	calls := 0
	w.EventuallyWithError(func() error {
		calls++
		if calls < 2 {
			return api.ErrRunInProgress
		}
		return nil
	}, time.Second, "condition should eventually succeed")
	w.Equal(2, calls)
}
