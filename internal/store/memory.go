package store

import (
	"context"
	"sync"

	"github.com/kode4food/waypoint/pkg/api"
)

// Memory is an in-process Store. Values are deep-copied on the way in and
// on the way out
type Memory struct {
	graphs map[api.GraphID]*api.Graph
	runs   map[api.RunID]*api.Run
	mu     sync.RWMutex
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-process Store
func NewMemory() *Memory {
	return &Memory{
		graphs: map[api.GraphID]*api.Graph{},
		runs:   map[api.RunID]*api.Run{},
	}
}

func (m *Memory) PutGraph(_ context.Context, g *api.Graph) error {
	if g.ID == "" {
		return ErrMissingID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs[g.ID] = g.Clone()
	return nil
}

func (m *Memory) GetGraph(_ context.Context, id api.GraphID) (*api.Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.graphs[id]
	if !ok {
		return nil, api.ErrGraphNotFound
	}
	return g.Clone(), nil
}

func (m *Memory) ListGraphs(context.Context) ([]*api.Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]*api.Graph, 0, len(m.graphs))
	for _, g := range m.graphs {
		res = append(res, g.Clone())
	}
	return sortGraphs(res), nil
}

func (m *Memory) DeleteGraph(_ context.Context, id api.GraphID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.graphs[id]; !ok {
		return api.ErrGraphNotFound
	}
	delete(m.graphs, id)
	return nil
}

func (m *Memory) PutRun(_ context.Context, r *api.Run) error {
	if r.ID == "" {
		return ErrMissingID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = r.Clone()
	return nil
}

func (m *Memory) GetRun(_ context.Context, id api.RunID) (*api.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, api.ErrRunNotFound
	}
	return r.Clone(), nil
}

func (m *Memory) ListRuns(context.Context) ([]*api.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]*api.Run, 0, len(m.runs))
	for _, r := range m.runs {
		res = append(res, r.Clone())
	}
	return sortRuns(res), nil
}

func (m *Memory) Close() error {
	return nil
}
