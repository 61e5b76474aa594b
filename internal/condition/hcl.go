package condition

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/kode4food/waypoint/pkg/api"
)

// HCLEnv evaluates HCL native-syntax expressions. State keys that are valid
// identifiers are bound as variables, and the whole state is bound as state
type HCLEnv struct {
	funcs map[string]function.Function
}

const (
	hclFilename  = "condition.hcl"
	hclStateName = "state"
)

// NewHCLEnv creates an HCL evaluation environment
func NewHCLEnv() *HCLEnv {
	return &HCLEnv{
		funcs: map[string]function.Function{
			"abs":      stdlib.AbsoluteFunc,
			"coalesce": stdlib.CoalesceFunc,
			"contains": stdlib.ContainsFunc,
			"length":   stdlib.LengthFunc,
			"lookup":   stdlib.LookupFunc,
			"lower":    stdlib.LowerFunc,
			"max":      stdlib.MaxFunc,
			"min":      stdlib.MinFunc,
			"strlen":   stdlib.StrlenFunc,
			"upper":    stdlib.UpperFunc,
		},
	}
}

// Compile parses an HCL expression
func (e *HCLEnv) Compile(expr string) (Compiled, error) {
	parsed, diags := hclsyntax.ParseExpression(
		[]byte(expr), hclFilename, hcl.InitialPos,
	)
	if diags.HasErrors() {
		return nil, diags
	}
	return parsed, nil
}

// Evaluate runs a parsed HCL expression against state. The result must be a
// known, non-null boolean
func (e *HCLEnv) Evaluate(c Compiled, st api.State) (bool, error) {
	expr, ok := c.(hclsyntax.Expression)
	if !ok {
		return false, fmt.Errorf("%w, got %T", ErrBadCompiledType, c)
	}

	vars, err := hclVariables(st)
	if err != nil {
		return false, err
	}
	val, diags := expr.Value(&hcl.EvalContext{
		Variables: vars,
		Functions: e.funcs,
	})
	if diags.HasErrors() {
		return false, diags
	}
	if val.IsNull() || !val.IsKnown() || !val.Type().Equals(cty.Bool) {
		return false, fmt.Errorf("%w: %s", ErrNotBoolean,
			val.Type().FriendlyName())
	}
	return val.True(), nil
}

func hclVariables(st api.State) (map[string]cty.Value, error) {
	vars := make(map[string]cty.Value, len(st)+1)
	attrs := make(map[string]cty.Value, len(st))
	for k, v := range st {
		val, err := toCty(v)
		if err != nil {
			return nil, fmt.Errorf("state key %s: %w", k, err)
		}
		attrs[k] = val
		if hclsyntax.ValidIdentifier(k) && k != hclStateName {
			vars[k] = val
		}
	}
	vars[hclStateName] = cty.ObjectVal(attrs)
	return vars, nil
}

func toCty(data any) (cty.Value, error) {
	if data == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	switch v := data.(type) {
	case string:
		return cty.StringVal(v), nil
	case bool:
		return cty.BoolVal(v), nil
	case int:
		return cty.NumberIntVal(int64(v)), nil
	case int32:
		return cty.NumberIntVal(int64(v)), nil
	case int64:
		return cty.NumberIntVal(v), nil
	case float32:
		return cty.NumberFloatVal(float64(v)), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return cty.NilVal, fmt.Errorf("unsupported number: %v", v)
		}
		return cty.NumberFloatVal(v), nil
	case json.Number:
		return cty.ParseNumberVal(v.String())
	case api.State:
		return mapToCty(v)
	case map[string]any:
		return mapToCty(v)
	case []string:
		elems := make([]cty.Value, len(v))
		for i, s := range v {
			elems[i] = cty.StringVal(s)
		}
		return cty.TupleVal(elems), nil
	case []any:
		elems := make([]cty.Value, 0, len(v))
		for _, item := range v {
			val, err := toCty(item)
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, val)
		}
		return cty.TupleVal(elems), nil
	default:
		return reflectToCty(v)
	}
}

func mapToCty(m map[string]any) (cty.Value, error) {
	attrs := make(map[string]cty.Value, len(m))
	for k, item := range m {
		val, err := toCty(item)
		if err != nil {
			return cty.NilVal, err
		}
		attrs[k] = val
	}
	return cty.ObjectVal(attrs), nil
}

func reflectToCty(v any) (cty.Value, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return toCty(items)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Int64:
		return cty.NumberIntVal(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64:
		return cty.NumberUIntVal(rv.Uint()), nil
	default:
		return cty.StringVal(fmt.Sprintf("%v", v)), nil
	}
}
