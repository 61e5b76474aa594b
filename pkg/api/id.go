package api

import (
	"regexp"
	"strings"
)

type (
	// GraphID is a unique identifier for a stored graph definition
	GraphID string

	// NodeID identifies a node within a single graph
	NodeID string

	// RunID is a unique identifier for one execution of a graph
	RunID string

	// ToolName is the registry key of a step implementation
	ToolName string
)

// InvalidIDChars matches characters not permitted in graph and run IDs. Valid
// characters are: letters, digits, underscore, dot, hyphen, plus, space
var InvalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-+ ]`)

// SanitizeID lowercases an ID, removes invalid characters, replaces spaces
// with hyphens, and trims leading and trailing hyphens
func SanitizeID[T ~string](id T) T {
	lower := strings.ToLower(string(id))
	sanitized := InvalidIDChars.ReplaceAllString(lower, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return T(strings.Trim(sanitized, "-"))
}
