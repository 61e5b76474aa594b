package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/waypoint/internal/condition"
	"github.com/kode4food/waypoint/pkg/api"
)

func TestJPathEvaluate(t *testing.T) {
	env := condition.NewJPathEnv()
	st := api.State{
		"items": []any{
			map[string]any{"price": 5},
			map[string]any{"price": 20},
		},
		"flag":  false,
		"count": 0,
		"name":  "",
		"empty": []any{},
		"ok":    true,
		"meta":  map[string]any{"owner": "ops"},
	}

	tests := []struct {
		path   string
		expect bool
	}{
		{"items.#(price>10)", true},
		{"items.#(price>100)", false},
		{"flag", false},
		{"count", false},
		{"name", false},
		{"empty", false},
		{"ok", true},
		{"meta.owner", true},
		{"meta", true},
		{"missing", false},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			c, err := env.Compile(tc.path)
			assert.NoError(t, err)
			res, err := env.Evaluate(c, st)
			assert.NoError(t, err)
			assert.Equal(t, tc.expect, res)
		})
	}
}

func TestJPathBadCompiled(t *testing.T) {
	env := condition.NewJPathEnv()
	_, err := env.Evaluate(42, api.State{})
	assert.ErrorIs(t, err, condition.ErrBadCompiledType)
}
