package helpers

import (
	"context"
	"sync"
	"time"

	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/tool"
)

// MockTools registers scripted tools and records how they were invoked
type MockTools struct {
	registry  *tool.Registry
	responses map[api.ToolName]api.State
	errors    map[api.ToolName]error
	blocks    map[api.ToolName]chan struct{}
	invoked   []api.ToolName
	calls     map[api.ToolName][]*tool.Call
	invokedCh map[api.ToolName]chan struct{}
	mu        sync.Mutex
}

// NewMockTools creates a mock tool set that registers into the given
// registry
func NewMockTools(reg *tool.Registry) *MockTools {
	return &MockTools{
		registry:  reg,
		responses: map[api.ToolName]api.State{},
		errors:    map[api.ToolName]error{},
		blocks:    map[api.ToolName]chan struct{}{},
		invoked:   []api.ToolName{},
		calls:     map[api.ToolName][]*tool.Call{},
		invokedCh: map[api.ToolName]chan struct{}{},
	}
}

// Register adds a scripted tool to the registry. Until configured otherwise
// it returns an empty output
func (m *MockTools) Register(names ...api.ToolName) {
	for _, name := range names {
		m.registry.MustRegister(name, m.invoker(name))
	}
}

// SetResponse configures the output a tool returns, registering it if needed
func (m *MockTools) SetResponse(name api.ToolName, out api.State) {
	m.mu.Lock()
	m.responses[name] = out
	m.mu.Unlock()
	m.ensure(name)
}

// SetError configures a tool to fail, registering it if needed
func (m *MockTools) SetError(name api.ToolName, err error) {
	m.mu.Lock()
	m.errors[name] = err
	m.mu.Unlock()
	m.ensure(name)
}

// ClearError removes any configured error for a tool
func (m *MockTools) ClearError(name api.ToolName) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errors, name)
}

// Block makes a tool wait until Release is called or its context ends
func (m *MockTools) Block(name api.ToolName) {
	m.mu.Lock()
	m.blocks[name] = make(chan struct{})
	m.mu.Unlock()
	m.ensure(name)
}

// Release unblocks every pending and future call of a blocked tool
func (m *MockTools) Release(name api.ToolName) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.blocks[name]; ok {
		close(ch)
		delete(m.blocks, name)
	}
}

// GetInvocations returns the names of invoked tools in call order
func (m *MockTools) GetInvocations() []api.ToolName {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]api.ToolName, len(m.invoked))
	copy(res, m.invoked)
	return res
}

// GetCalls returns the calls a tool received
func (m *MockTools) GetCalls(name api.ToolName) []*tool.Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]*tool.Call, len(m.calls[name]))
	copy(res, m.calls[name])
	return res
}

// WasInvoked returns whether a tool was invoked
func (m *MockTools) WasInvoked(name api.ToolName) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls[name]) > 0
}

// WaitForInvocation blocks until a tool is invoked or the timeout expires
func (m *MockTools) WaitForInvocation(
	name api.ToolName, timeout time.Duration,
) bool {
	m.mu.Lock()
	if len(m.calls[name]) > 0 {
		m.mu.Unlock()
		return true
	}
	ch, ok := m.invokedCh[name]
	if !ok {
		ch = make(chan struct{}, 1)
		m.invokedCh[name] = ch
	}
	m.mu.Unlock()

	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (m *MockTools) ensure(name api.ToolName) {
	if _, ok := m.registry.Get(name); !ok {
		m.Register(name)
	}
}

func (m *MockTools) invoker(name api.ToolName) tool.Func {
	return func(ctx context.Context, c *tool.Call) (api.State, error) {
		m.mu.Lock()
		m.invoked = append(m.invoked, name)
		m.calls[name] = append(m.calls[name], c)
		if ch, ok := m.invokedCh[name]; ok {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
		block := m.blocks[name]
		m.mu.Unlock()

		if block != nil {
			select {
			case <-block:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if err, ok := m.errors[name]; ok {
			return nil, err
		}
		if out, ok := m.responses[name]; ok {
			return out.Snapshot(), nil
		}
		return api.State{}, nil
	}
}
