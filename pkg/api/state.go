package api

import (
	"encoding/json"
	"maps"
	"slices"
)

// State is the key-value context threaded through a run. Values are
// dynamically typed and usually originate from JSON documents
type State map[string]any

// Merge shallow-merges update into the State, overwriting existing keys, and
// returns the result. A nil receiver produces a new State
func (s State) Merge(update State) State {
	if s == nil {
		s = make(State, len(update))
	}
	maps.Copy(s, update)
	return s
}

// Set returns a copy of the State with the specified key-value pair added
func (s State) Set(key string, value any) State {
	if s == nil {
		return State{key: value}
	}
	res := maps.Clone(s)
	res[key] = value
	return res
}

// Snapshot returns a deep copy of the State. Nested maps and slices are
// copied so that holders of the snapshot cannot affect the original
func (s State) Snapshot() State {
	if s == nil {
		return State{}
	}
	res := make(State, len(s))
	for k, v := range s {
		res[k] = copyValue(v)
	}
	return res
}

// Keys returns the keys of the State in sorted order
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// GetString retrieves a string value, returning defaultValue if not found or
// of the wrong type
func (s State) GetString(key string, defaultValue string) string {
	val, ok := s[key]
	if !ok {
		return defaultValue
	}
	str, ok := val.(string)
	if !ok {
		return defaultValue
	}
	return str
}

// GetBool retrieves a boolean value, returning defaultValue if not found or
// of the wrong type
func (s State) GetBool(key string, defaultValue bool) bool {
	val, ok := s[key]
	if !ok {
		return defaultValue
	}
	b, ok := val.(bool)
	if !ok {
		return defaultValue
	}
	return b
}

// GetInt retrieves an integer value, returning defaultValue if not found or
// of the wrong type. Supports int, int64, float64 and json.Number
func (s State) GetInt(key string, defaultValue int) int {
	f, ok := toFloat(s[key])
	if !ok {
		return defaultValue
	}
	return int(f)
}

// GetFloat retrieves a numeric value as float64, returning defaultValue if
// not found or of the wrong type
func (s State) GetFloat(key string, defaultValue float64) float64 {
	f, ok := toFloat(s[key])
	if !ok {
		return defaultValue
	}
	return f
}

// GetSlice retrieves a slice value, returning nil if not found or of the
// wrong type
func (s State) GetSlice(key string) []any {
	val, ok := s[key].([]any)
	if !ok {
		return nil
	}
	return val
}

func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func copyValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		res := make(map[string]any, len(v))
		for k, item := range v {
			res[k] = copyValue(item)
		}
		return res
	case State:
		return v.Snapshot()
	case []any:
		res := make([]any, len(v))
		for i, item := range v {
			res[i] = copyValue(item)
		}
		return res
	case []string:
		return slices.Clone(v)
	default:
		return v
	}
}
