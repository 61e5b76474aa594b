package events

import (
	"sync"
	"sync/atomic"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/waypoint/pkg/api"
)

type (
	// Hub fans run events out to subscribers. A single consumer drains the
	// hub's topic and dispatches each event to the subscribers registered
	// for its run, plus those watching every run
	Hub struct {
		prod    topic.Producer[*envelope]
		cons    topic.Consumer[*envelope]
		runs    map[api.RunID]map[*Subscription]struct{}
		all     map[*Subscription]struct{}
		done    chan struct{}
		stopped chan struct{}
		seq     atomic.Uint64
		mu      sync.RWMutex
		closed  bool
	}

	// Subscription delivers the events accepted by its filter until the
	// stop condition matches or it is closed. Only events published after
	// the Subscription was created are delivered
	Subscription struct {
		hub    *Hub
		runID  api.RunID
		filter Filter
		until  Filter
		from   uint64
		queue  []*api.Event
		out    chan *api.Event
		ready  chan struct{}
		done   chan struct{}
		mu     sync.Mutex
		once   sync.Once
	}

	// Filter reports whether an event is of interest
	Filter func(*api.Event) bool

	envelope struct {
		event *api.Event
		seq   uint64
	}
)

const subscriptionBuffer = 64

// NewHub creates an event hub backed by an in-process topic
func NewHub() *Hub {
	t := caravan.NewTopic[*envelope]()
	h := &Hub{
		prod:    t.NewProducer(),
		cons:    t.NewConsumer(),
		runs:    map[api.RunID]map[*Subscription]struct{}{},
		all:     map[*Subscription]struct{}{},
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go h.dispatch()
	return h
}

// Publish sends an event to every current subscriber. Events published after
// Close are dropped
func (h *Hub) Publish(ev *api.Event) {
	if ev == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	message.Send(h.prod, &envelope{
		event: ev,
		seq:   h.seq.Add(1),
	})
}

// Subscribe delivers every event accepted by filter until the Subscription
// is closed
func (h *Hub) Subscribe(filter Filter) *Subscription {
	if filter == nil {
		filter = FilterAll
	}
	return h.subscribe("", filter, nil)
}

// SubscribeRun delivers the events of a single run, ending after its
// terminal event
func (h *Hub) SubscribeRun(id api.RunID) *Subscription {
	return h.subscribe(id, FilterRun(id), (*api.Event).IsTerminal)
}

// Close stops accepting events and ends every open Subscription
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.prod.Close()
	subs := h.registered()
	h.runs = map[api.RunID]map[*Subscription]struct{}{}
	h.all = map[*Subscription]struct{}{}
	h.mu.Unlock()

	close(h.done)
	<-h.stopped
	h.cons.Close()
	for _, s := range subs {
		s.Close()
	}
}

func (h *Hub) subscribe(id api.RunID, filter, until Filter) *Subscription {
	s := &Subscription{
		hub:    h,
		runID:  id,
		filter: filter,
		until:  until,
		out:    make(chan *api.Event, subscriptionBuffer),
		ready:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.Close()
		go s.pump()
		return s
	}
	s.from = h.seq.Load()
	if id == "" {
		h.all[s] = struct{}{}
	} else {
		subs, ok := h.runs[id]
		if !ok {
			subs = map[*Subscription]struct{}{}
			h.runs[id] = subs
		}
		subs[s] = struct{}{}
	}
	h.mu.Unlock()

	go s.pump()
	return s
}

func (h *Hub) unregister(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.runID == "" {
		delete(h.all, s)
		return
	}
	if subs, ok := h.runs[s.runID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.runs, s.runID)
		}
	}
}

func (h *Hub) registered() []*Subscription {
	res := make([]*Subscription, 0, len(h.all))
	for s := range h.all {
		res = append(res, s)
	}
	for _, subs := range h.runs {
		for s := range subs {
			res = append(res, s)
		}
	}
	return res
}

func (h *Hub) dispatch() {
	defer close(h.stopped)
	for {
		select {
		case <-h.done:
			return
		case env, ok := <-h.cons.Receive():
			if !ok {
				return
			}
			h.deliver(env)
		}
	}
}

func (h *Hub) deliver(env *envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.runs[env.event.RunID] {
		s.offer(env)
	}
	for s := range h.all {
		s.offer(env)
	}
}

// Events returns the channel of delivered events. It is closed when the
// Subscription ends
func (s *Subscription) Events() <-chan *api.Event {
	return s.out
}

// Close ends the Subscription
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *Subscription) offer(env *envelope) {
	if env.seq <= s.from || !s.filter(env.event) {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, env.event)
	s.mu.Unlock()
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *Subscription) next() (*api.Event, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return ev, true
		}
		s.mu.Unlock()

		select {
		case <-s.ready:
		case <-s.done:
			return nil, false
		}
	}
}

func (s *Subscription) pump() {
	defer close(s.out)
	defer s.hub.unregister(s)

	for {
		ev, ok := s.next()
		if !ok {
			return
		}
		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
		if s.until != nil && s.until(ev) {
			return
		}
	}
}

// FilterAll accepts every event
func FilterAll(*api.Event) bool {
	return true
}

// FilterRun accepts the events of a single run
func FilterRun(id api.RunID) Filter {
	return func(ev *api.Event) bool {
		return ev.RunID == id
	}
}

// FilterTypes accepts events of the given types
func FilterTypes(types ...api.EventType) Filter {
	return func(ev *api.Event) bool {
		for _, typ := range types {
			if ev.Type == typ {
				return true
			}
		}
		return false
	}
}

// And accepts events accepted by every filter
func And(filters ...Filter) Filter {
	return func(ev *api.Event) bool {
		for _, f := range filters {
			if !f(ev) {
				return false
			}
		}
		return true
	}
}
