package api_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/waypoint/pkg/api"
)

func TestMergeOverwritesByKey(t *testing.T) {
	st := api.State{"a": 1}
	res := st.Merge(api.State{"a": 2, "b": 3})

	assert.Equal(t, api.State{"a": 2, "b": 3}, res)
	assert.Equal(t, api.State{"a": 2, "b": 3}, st)
}

func TestMergeNilReceiver(t *testing.T) {
	var st api.State
	res := st.Merge(api.State{"x": "y"})
	assert.Equal(t, api.State{"x": "y"}, res)
}

func TestMergeIsShallow(t *testing.T) {
	st := api.State{"nested": map[string]any{"a": 1, "b": 2}}
	st.Merge(api.State{"nested": map[string]any{"c": 3}})
	assert.Equal(t, map[string]any{"c": 3}, st["nested"])
}

func TestSetDoesNotMutate(t *testing.T) {
	st := api.State{"a": 1}
	res := st.Set("b", 2)

	assert.Equal(t, api.State{"a": 1}, st)
	assert.Equal(t, api.State{"a": 1, "b": 2}, res)
}

func TestSnapshotIsDeep(t *testing.T) {
	st := api.State{
		"list":   []any{1, map[string]any{"k": "v"}},
		"nested": map[string]any{"inner": []any{"x"}},
	}
	snap := st.Snapshot()

	snap["list"].([]any)[1].(map[string]any)["k"] = "changed"
	snap["nested"].(map[string]any)["inner"] = nil

	assert.Equal(t, "v", st["list"].([]any)[1].(map[string]any)["k"])
	assert.Equal(t, []any{"x"}, st["nested"].(map[string]any)["inner"])
}

func TestSnapshotNil(t *testing.T) {
	var st api.State
	assert.Equal(t, api.State{}, st.Snapshot())
}

func TestKeysSorted(t *testing.T) {
	st := api.State{"b": 1, "c": 2, "a": 3}
	assert.Equal(t, []string{"a", "b", "c"}, st.Keys())
}

func TestGetters(t *testing.T) {
	st := api.State{
		"name":   "test",
		"flag":   true,
		"count":  42,
		"ratio":  float64(2.5),
		"big":    int64(7),
		"num":    json.Number("12"),
		"list":   []any{1, 2},
		"wrong":  []int{1},
		"string": "not-a-number",
	}

	assert.Equal(t, "test", st.GetString("name", "default"))
	assert.Equal(t, "default", st.GetString("missing", "default"))
	assert.Equal(t, "default", st.GetString("count", "default"))

	assert.True(t, st.GetBool("flag", false))
	assert.True(t, st.GetBool("missing", true))
	assert.False(t, st.GetBool("name", false))

	assert.Equal(t, 42, st.GetInt("count", 0))
	assert.Equal(t, 2, st.GetInt("ratio", 0))
	assert.Equal(t, 7, st.GetInt("big", 0))
	assert.Equal(t, 12, st.GetInt("num", 0))
	assert.Equal(t, 99, st.GetInt("string", 99))

	assert.Equal(t, 2.5, st.GetFloat("ratio", 0))
	assert.Equal(t, 1.5, st.GetFloat("missing", 1.5))

	assert.Equal(t, []any{1, 2}, st.GetSlice("list"))
	assert.Nil(t, st.GetSlice("wrong"))
}
