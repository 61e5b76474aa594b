package tools

import (
	"fmt"

	"github.com/kode4food/waypoint/pkg/api"
)

const (
	// DefaultQualityThreshold is the quality score below which the code
	// review graph keeps iterating
	DefaultQualityThreshold = 70.0

	// DefaultReviewIterations bounds the code review loop
	DefaultReviewIterations = 5

	CodeReviewGraphID api.GraphID = "code-review"
)

// CodeReviewGraph builds the iterative code review workflow. Each pass
// extracts functions, checks their complexity, detects issues and scores the
// result, returning to extraction while the score stays below quality
func CodeReviewGraph(threshold int, quality float64, maxIter int) *api.Graph {
	cond := fmt.Sprintf(`lookup(state, "quality_score", 0) < %g`, quality)
	return &api.Graph{
		ID:   CodeReviewGraphID,
		Name: "Code Review Agent",
		Description: "Automated code review workflow with iterative " +
			"refinement",
		Entry: "extract",
		Nodes: []*api.Node{
			{ID: "extract", Tool: ExtractFunctions},
			{
				ID:     "complexity",
				Tool:   CheckComplexity,
				Config: map[string]any{"threshold": threshold},
			},
			{ID: "detect", Tool: DetectIssues},
			{ID: "suggest", Tool: SuggestImprovements},
		},
		Edges: []*api.Edge{
			{From: "extract", To: "complexity", Kind: api.EdgeNormal},
			{From: "complexity", To: "detect", Kind: api.EdgeNormal},
			{From: "detect", To: "suggest", Kind: api.EdgeNormal},
			{
				From:      "suggest",
				To:        "extract",
				Kind:      api.EdgeConditional,
				Condition: cond,
			},
		},
		Loops: []*api.Loop{
			{
				Node:          "extract",
				Condition:     cond,
				MaxIterations: maxIter,
			},
		},
	}
}
