package wait

import (
	"testing"
	"time"

	"github.com/kode4food/waypoint/internal/events"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/util"
)

type (
	Wait struct {
		t       *testing.T
		sub     *events.Subscription
		timeout time.Duration
	}

	EventFilter func(*api.Event) bool
)

const DefaultTimeout = time.Second * 5

func On(t *testing.T, sub *events.Subscription) *Wait {
	return &Wait{
		t:       t,
		sub:     sub,
		timeout: DefaultTimeout,
	}
}

func (w *Wait) WithTimeout(timeout time.Duration) *Wait {
	res := *w
	res.timeout = timeout
	return &res
}

// ForEvents waits for matching events from the subscription and returns them
func (w *Wait) ForEvents(count int, filter EventFilter) []*api.Event {
	w.t.Helper()

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()

	res := make([]*api.Event, 0, count)
	for len(res) < count {
		select {
		case ev, ok := <-w.sub.Events():
			if !ok {
				w.t.Fatalf(
					"subscription closed before receiving %d events", count,
				)
			}
			if !filter(ev) {
				continue
			}
			res = append(res, ev)
		case <-deadline.C:
			w.t.Fatalf("timeout waiting for %d events", count)
		}
	}
	return res
}

// ForEvent waits for a single matching event
func (w *Wait) ForEvent(filter EventFilter) *api.Event {
	w.t.Helper()
	return w.ForEvents(1, filter)[0]
}

// All collects every event until the subscription ends
func (w *Wait) All() []*api.Event {
	w.t.Helper()

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()

	var res []*api.Event
	for {
		select {
		case ev, ok := <-w.sub.Events():
			if !ok {
				return res
			}
			res = append(res, ev)
		case <-deadline.C:
			w.t.Fatalf("timeout waiting for subscription to end")
		}
	}
}

// And composes event filters and returns true when all match
func And(filters ...EventFilter) EventFilter {
	return func(ev *api.Event) bool {
		for _, filter := range filters {
			if !filter(ev) {
				return false
			}
		}
		return true
	}
}

// Type creates a filter for a single event type
func Type(eventType api.EventType) EventFilter {
	return Types(eventType)
}

// Types creates a filter for the given event types
func Types(eventTypes ...api.EventType) EventFilter {
	if len(eventTypes) == 0 {
		return func(*api.Event) bool { return false }
	}
	lookup := make(util.Set[api.EventType], len(eventTypes))
	for _, et := range eventTypes {
		lookup.Add(et)
	}
	return func(ev *api.Event) bool {
		return ev != nil && lookup.Contains(ev.Type)
	}
}

// NodeStarted matches node_start events for the provided nodes, consuming
// each expected node once
func NodeStarted(ids ...api.NodeID) EventFilter {
	return And(Type(api.EventTypeNodeStart), Nodes(ids...))
}

// NodeCompleted matches node_complete events for the provided nodes,
// consuming each expected node once
func NodeCompleted(ids ...api.NodeID) EventFilter {
	return And(Type(api.EventTypeNodeComplete), Nodes(ids...))
}

// RunCompleted matches the terminal event of a run with the given status
func RunCompleted(status api.RunStatus) EventFilter {
	return func(ev *api.Event) bool {
		if ev == nil || !ev.IsTerminal() {
			return false
		}
		data, ok := ev.Data.(api.ExecutionCompleteEvent)
		return ok && data.Status == status
	}
}

// Nodes matches events carrying one of the provided node IDs. Each ID is
// matched at most once
func Nodes(ids ...api.NodeID) EventFilter {
	expected := make(util.Set[api.NodeID], len(ids))
	for _, id := range ids {
		expected.Add(id)
	}
	return func(ev *api.Event) bool {
		id, ok := NodeOf(ev)
		if ok && expected.Contains(id) {
			expected.Remove(id)
			return true
		}
		return false
	}
}

// NodeOf extracts the node ID carried by a node event
func NodeOf(ev *api.Event) (api.NodeID, bool) {
	if ev == nil {
		return "", false
	}
	switch data := ev.Data.(type) {
	case api.NodeStartEvent:
		return data.NodeID, true
	case api.NodeCompleteEvent:
		return data.NodeID, true
	case api.NodeErrorEvent:
		return data.NodeID, true
	default:
		return "", false
	}
}
