package tool_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/tool"
)

func TestRegisterAndGet(t *testing.T) {
	reg := tool.NewRegistry()
	assert.NoError(t, reg.Register("echo", tool.Static(api.State{"a": 1})))

	fn, ok := reg.Get("echo")
	assert.True(t, ok)

	out, err := fn(context.Background(), &tool.Call{})
	assert.NoError(t, err)
	assert.Equal(t, api.State{"a": 1}, out)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestRegisterInvalid(t *testing.T) {
	reg := tool.NewRegistry()
	assert.ErrorIs(t, reg.Register("", tool.Static(nil)), tool.ErrInvalidName)
	assert.ErrorIs(t, reg.Register("nil", nil), tool.ErrNilFunc)
	assert.Panics(t, func() {
		reg.MustRegister("", nil)
	})
}

func TestRegisterReplaces(t *testing.T) {
	reg := tool.NewRegistry()
	reg.MustRegister("t", tool.Static(api.State{"v": 1}))
	reg.MustRegister("t", tool.Static(api.State{"v": 2}))

	fn, _ := reg.Get("t")
	out, _ := fn(context.Background(), &tool.Call{})
	assert.Equal(t, 2, out["v"])
	assert.Equal(t, 1, reg.Len())
}

func TestNamesSorted(t *testing.T) {
	reg := tool.NewRegistry()
	reg.MustRegister("zeta", tool.Static(nil))
	reg.MustRegister("alpha", tool.Static(nil))
	reg.MustRegister("mid", tool.Static(nil))

	assert.Equal(t,
		[]api.ToolName{"alpha", "mid", "zeta"}, reg.Names(),
	)

	reg.Unregister("mid")
	assert.Equal(t, []api.ToolName{"alpha", "zeta"}, reg.Names())
}

func TestSimpleAdapter(t *testing.T) {
	fn := tool.Simple(func(st api.State) (api.State, error) {
		return api.State{"seen": st.GetString("text", "")}, nil
	})

	out, err := fn(context.Background(), &tool.Call{
		State: api.State{"text": "Hello"},
	})
	assert.NoError(t, err)
	assert.Equal(t, api.State{"seen": "Hello"}, out)
}

func TestConcurrentAccess(t *testing.T) {
	reg := tool.NewRegistry()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			name := api.ToolName(string(rune('a' + i%26)))
			reg.MustRegister(name, tool.Static(nil))
			_, _ = reg.Get(name)
			_ = reg.Names()
		})
	}
	wg.Wait()
	assert.Equal(t, 26, reg.Len())
}
