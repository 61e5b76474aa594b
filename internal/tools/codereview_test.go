package tools_test

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/waypoint/internal/tools"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/tool"
)

const sample = `package sample

// Add sums two numbers
func Add(a, b int) int {
	return a + b
}

func classify(n int) string {
	if n < 0 && n > -10 {
		return "small negative"
	}
	for i := 0; i < n; i++ {
		if i%2 == 0 || i%3 == 0 {
			continue
		}
	}
	switch {
	case n == 0:
		return "zero"
	case n > 100:
		return "big"
	default:
		return "other"
	}
}

type point struct{ x, y int }

func (p *point) Move(dx int) {
	fmt.Println("moving") // TODO remove
	p.x += dx
}
`

func invoke(
	t *testing.T, name api.ToolName, st api.State, cfg map[string]any,
) api.State {
	t.Helper()
	reg := tool.NewRegistry()
	tools.RegisterCodeReview(reg)
	fn, ok := reg.Get(name)
	require.True(t, ok)
	out, err := fn(context.Background(), &tool.Call{
		State:  st,
		Config: cfg,
		Tool:   name,
	})
	require.NoError(t, err)
	return out
}

func byName(items []any) map[string]map[string]any {
	res := map[string]map[string]any{}
	for _, item := range items {
		m := item.(map[string]any)
		res[m["name"].(string)] = m
	}
	return res
}

func countTypes(items []any) map[string]int {
	res := map[string]int{}
	for _, item := range items {
		res[item.(map[string]any)["type"].(string)]++
	}
	return res
}

func TestExtractFunctions(t *testing.T) {
	out := invoke(t, tools.ExtractFunctions, api.State{"code": sample}, nil)
	assert.Equal(t, 3, out["function_count"])

	fns := byName(out.GetSlice("functions"))
	require.Len(t, fns, 3)

	add := fns["Add"]
	require.NotNil(t, add)
	assert.Equal(t, []any{"a", "b"}, add["args"])
	assert.Equal(t, true, add["has_docstring"])
	assert.Equal(t, 4, add["line_number"])

	assert.Equal(t, false, fns["classify"]["has_docstring"])
	assert.Equal(t, []any{"dx"}, fns["point.Move"]["args"])
}

func TestExtractFunctionsEmpty(t *testing.T) {
	out := invoke(t, tools.ExtractFunctions, api.State{}, nil)
	assert.Equal(t, 0, out["function_count"])
	assert.Empty(t, out.GetSlice("functions"))
}

func TestExtractFunctionsSyntaxError(t *testing.T) {
	out := invoke(t, tools.ExtractFunctions,
		api.State{"code": "package x\nfunc {"}, nil,
	)
	assert.Equal(t, 0, out["function_count"])
	assert.NotEmpty(t, out["syntax_error"])
}

func TestCheckComplexity(t *testing.T) {
	tests := []struct {
		name      string
		config    map[string]any
		threshold int
		issues    int
	}{
		{
			name:      "default_threshold",
			threshold: tools.DefaultComplexityThreshold,
			issues:    0,
		},
		{
			name:      "configured_threshold",
			config:    map[string]any{"threshold": 5},
			threshold: 5,
			issues:    1,
		},
		{
			name:      "decoded_threshold",
			config:    map[string]any{"threshold": float64(7)},
			threshold: 7,
			issues:    1,
		},
		{
			name:      "low_threshold",
			config:    map[string]any{"threshold": 0},
			threshold: 0,
			issues:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := invoke(t, tools.CheckComplexity,
				api.State{"code": sample}, tt.config,
			)
			assert.Equal(t, 8, out["max_complexity"])
			assert.Equal(t, tt.threshold, out["complexity_threshold"])
			assert.Len(t, out.GetSlice("complexity_issues"), tt.issues)
		})
	}
}

func TestCheckComplexityIssueDetail(t *testing.T) {
	out := invoke(t, tools.CheckComplexity,
		api.State{"code": sample}, map[string]any{"threshold": 0},
	)
	issues := byName(out.GetSlice("complexity_issues"))
	assert.Equal(t, 8, issues["classify"]["complexity"])
	assert.Equal(t, "function", issues["classify"]["type"])
	assert.Equal(t, "point", issues["point.Move"]["type"])
}

func TestCheckComplexityEmpty(t *testing.T) {
	out := invoke(t, tools.CheckComplexity, api.State{}, nil)
	assert.Equal(t, 0, out["max_complexity"])
	assert.Empty(t, out.GetSlice("complexity_issues"))
}

func TestComplexity(t *testing.T) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "sample.go", sample, 0)
	require.NoError(t, err)

	res := map[string]int{}
	for _, d := range file.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok {
			res[fn.Name.Name] = tools.Complexity(fn)
		}
	}
	assert.Equal(t, map[string]int{
		"Add":      1,
		"classify": 8,
		"Move":     1,
	}, res)
}

func TestDetectIssues(t *testing.T) {
	out := invoke(t, tools.DetectIssues, api.State{"code": sample}, nil)
	issues := out.GetSlice("issues")
	assert.Equal(t, len(issues), out["issue_count"])
	assert.Equal(t, map[string]int{
		"missing_docstring": 3,
		"todo_comment":      1,
		"debug_statement":   1,
	}, countTypes(issues))
}

func TestDetectIssuesLongLine(t *testing.T) {
	long := "package x\n\nvar s = \"" +
		"0123456789012345678901234567890123456789" +
		"0123456789012345678901234567890123456789" +
		"0123456789012345678901234567890123456789\"\n" +
		"// " + "0123456789012345678901234567890123456789" +
		"0123456789012345678901234567890123456789" +
		"0123456789012345678901234567890123456789\n"

	out := invoke(t, tools.DetectIssues, api.State{"code": long}, nil)
	assert.Equal(t, map[string]int{
		"line_too_long": 1,
	}, countTypes(out.GetSlice("issues")))
}

func TestDetectIssuesEmpty(t *testing.T) {
	out := invoke(t, tools.DetectIssues, api.State{}, nil)
	assert.Equal(t, 0, out["issue_count"])
}

func TestSuggestImprovements(t *testing.T) {
	st := api.State{"code": sample}
	st = st.Merge(invoke(t, tools.ExtractFunctions, st, nil))
	st = st.Merge(invoke(t, tools.CheckComplexity, st,
		map[string]any{"threshold": 5},
	))
	st = st.Merge(invoke(t, tools.DetectIssues, st, nil))

	out := invoke(t, tools.SuggestImprovements, st, nil)
	assert.Equal(t, 80.0, out["quality_score"])
	assert.Equal(t, 2, out["suggestion_count"])

	cats := map[string]bool{}
	for _, s := range out.GetSlice("suggestions") {
		cats[s.(map[string]any)["category"].(string)] = true
	}
	assert.Equal(t, map[string]bool{
		"complexity":    true,
		"documentation": true,
	}, cats)
}

func TestSuggestImprovementsClean(t *testing.T) {
	out := invoke(t, tools.SuggestImprovements, api.State{}, nil)
	assert.Equal(t, 100.0, out["quality_score"])
	assert.Equal(t, 0, out["suggestion_count"])
}

func TestQualityScore(t *testing.T) {
	assert.Equal(t, 100.0, tools.QualityScore(0, 1))
	assert.Equal(t, 80.0, tools.QualityScore(6, 3))
	assert.Equal(t, 80.0, tools.QualityScore(2, 0))
	assert.Equal(t, 0.0, tools.QualityScore(50, 1))
}
