package condition_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/waypoint/internal/condition"
	"github.com/kode4food/waypoint/pkg/api"
)

func TestRegistryDefaultLanguage(t *testing.T) {
	reg := condition.NewRegistry(0, "")
	assert.Equal(t, condition.LangHCL, reg.DefaultLanguage())
	assert.Equal(t,
		[]string{condition.LangHCL, condition.LangJPath, condition.LangLua},
		reg.Languages(),
	)

	ok, err := reg.Evaluate("", "complexity > 10", api.State{
		"complexity": 15,
	})
	assert.NoError(t, err)
	assert.True(t, ok)

	lua := condition.NewRegistry(16, condition.LangLua)
	ok, err = lua.Evaluate("", "complexity > 10 and done", api.State{
		"complexity": 15,
		"done":       true,
	})
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistryUnsupportedLanguage(t *testing.T) {
	reg := condition.NewRegistry(0, "")
	_, err := reg.Evaluate("cobol", "x", api.State{})
	assert.ErrorIs(t, err, api.ErrCondition)
	assert.ErrorIs(t, err, condition.ErrUnsupportedLanguage)

	var ce *api.ConditionError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "cobol", ce.Language)
	assert.Equal(t, "x", ce.Expression)
}

func TestRegistryEmptyExpression(t *testing.T) {
	reg := condition.NewRegistry(0, "")
	_, err := reg.Compile(condition.LangLua, "   ")
	assert.ErrorIs(t, err, condition.ErrEmptyExpression)
}

func TestRegistryCompileCached(t *testing.T) {
	reg := condition.NewRegistry(0, "")
	first, err := reg.Compile(condition.LangLua, "a == 1")
	assert.NoError(t, err)
	second, err := reg.Compile("LUA", "a == 1")
	assert.NoError(t, err)
	assert.Same(t, first, second)
}

func TestRegistryValidateGraph(t *testing.T) {
	reg := condition.NewRegistry(0, "")
	g := &api.Graph{
		Name:  "g",
		Entry: "a",
		Nodes: []*api.Node{{ID: "a"}, {ID: "b"}},
		Edges: []*api.Edge{{
			From:      "a",
			To:        "b",
			Kind:      api.EdgeConditional,
			Condition: "x >",
		}},
	}
	err := reg.Validate(g)
	assert.ErrorIs(t, err, api.ErrCondition)
	assert.Contains(t, err.Error(), "edge a -> b")

	g.Edges[0].Condition = "x > 1"
	assert.NoError(t, reg.Validate(g))
}

func TestParsePolicy(t *testing.T) {
	p, err := condition.ParsePolicy("")
	assert.NoError(t, err)
	assert.Equal(t, condition.PolicyLenient, p)

	p, err = condition.ParsePolicy(" STRICT ")
	assert.NoError(t, err)
	assert.Equal(t, condition.PolicyStrict, p)

	_, err = condition.ParsePolicy("loose")
	assert.ErrorIs(t, err, condition.ErrUnknownPolicy)
}

func TestPolicyResolve(t *testing.T) {
	boom := errors.New("boom")

	ok, ignored, fatal := condition.PolicyLenient.Resolve(true, nil)
	assert.True(t, ok)
	assert.NoError(t, ignored)
	assert.NoError(t, fatal)

	ok, ignored, fatal = condition.PolicyLenient.Resolve(true, boom)
	assert.False(t, ok)
	assert.Equal(t, boom, ignored)
	assert.NoError(t, fatal)

	ok, ignored, fatal = condition.PolicyStrict.Resolve(true, boom)
	assert.False(t, ok)
	assert.NoError(t, ignored)
	assert.Equal(t, boom, fatal)
}

func TestCache(t *testing.T) {
	c := condition.NewCache(2)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)
	assert.Equal(t, 2, c.Len())

	_, ok := c.Get("a")
	assert.False(t, ok)

	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}
