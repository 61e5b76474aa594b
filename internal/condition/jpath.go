package condition

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/kode4food/waypoint/pkg/api"
)

type (
	// JPathEnv evaluates gjson paths against the JSON form of state
	JPathEnv struct{}

	// CompiledJPath is a gjson path expression
	CompiledJPath string
)

// NewJPathEnv creates a path evaluation environment
func NewJPathEnv() *JPathEnv {
	return &JPathEnv{}
}

// Compile trims and keeps the path. gjson paths have no separate parse step
func (e *JPathEnv) Compile(expr string) (Compiled, error) {
	return CompiledJPath(strings.TrimSpace(expr)), nil
}

// Evaluate reports whether the path matches a truthy value. Missing paths,
// null, false, zero, empty strings and empty arrays do not match
func (e *JPathEnv) Evaluate(c Compiled, st api.State) (bool, error) {
	path, ok := c.(CompiledJPath)
	if !ok {
		return false, fmt.Errorf("%w, got %T", ErrBadCompiledType, c)
	}

	doc, err := json.Marshal(st)
	if err != nil {
		return false, err
	}
	return isTruthy(gjson.GetBytes(doc, string(path))), nil
}

func isTruthy(res gjson.Result) bool {
	if !res.Exists() {
		return false
	}
	switch res.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return res.Float() != 0
	case gjson.String:
		return res.Str != ""
	default:
		if res.IsArray() {
			return len(res.Array()) > 0
		}
		return true
	}
}
