package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/waypoint/pkg/api"
)

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		name     string
		input    api.RunID
		expected api.RunID
	}{
		{"already clean", "run-1", "run-1"},
		{"uppercase", "Run-ABC", "run-abc"},
		{"spaces", "my run id", "my-run-id"},
		{"invalid chars", "run/#1!", "run1"},
		{"leading hyphens", "--run--", "run"},
		{"keeps dots and plus", "v1.2+build", "v1.2+build"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, api.SanitizeID(tc.input))
		})
	}
}

func TestSanitizeGraphID(t *testing.T) {
	assert.Equal(t,
		api.GraphID("code-review"), api.SanitizeID(api.GraphID("Code Review")),
	)
}
