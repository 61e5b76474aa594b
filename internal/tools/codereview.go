package tools

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
	"github.com/kode4food/waypoint/pkg/tool"
)

type (
	sourceFile struct {
		fset *token.FileSet
		file *ast.File
	}

	missingDoc struct {
		kind string
		name string
		line int
	}
)

const (
	ExtractFunctions    api.ToolName = "extract_functions"
	CheckComplexity     api.ToolName = "check_complexity"
	DetectIssues        api.ToolName = "detect_issues"
	SuggestImprovements api.ToolName = "suggest_improvements"

	// DefaultComplexityThreshold is used when check_complexity is not
	// configured with a threshold
	DefaultComplexityThreshold = 10

	maxLineLength = 100
	codeKey       = "code"
	sourceName    = "source.go"
)

// RegisterCodeReview adds the code review tools to a registry
func RegisterCodeReview(reg *tool.Registry) {
	reg.MustRegister(ExtractFunctions, tool.Simple(extractFunctions))
	reg.MustRegister(CheckComplexity, checkComplexity)
	reg.MustRegister(DetectIssues, tool.Simple(detectIssues))
	reg.MustRegister(SuggestImprovements, tool.Simple(suggestImprovements))
}

func extractFunctions(st api.State) (api.State, error) {
	code := st.GetString(codeKey, "")
	if code == "" {
		slog.Warn("No code found in state")
		return api.State{"functions": []any{}, "function_count": 0}, nil
	}

	src, err := parseSource(code)
	if err != nil {
		slog.Error("Syntax error in code",
			log.Error(err))
		return api.State{
			"functions":      []any{},
			"function_count": 0,
			"syntax_error":   err.Error(),
		}, nil
	}

	var functions []any
	for _, fn := range src.funcs() {
		functions = append(functions, map[string]any{
			"name":          funcName(fn),
			"line_number":   src.line(fn.Pos()),
			"args":          paramNames(fn),
			"has_docstring": fn.Doc != nil,
		})
	}
	if functions == nil {
		functions = []any{}
	}

	slog.Info("Extracted functions",
		slog.Int("count", len(functions)))
	return api.State{
		"functions":      functions,
		"function_count": len(functions),
	}, nil
}

func checkComplexity(_ context.Context, c *tool.Call) (api.State, error) {
	threshold := api.State(c.Config).GetInt(
		"threshold", DefaultComplexityThreshold,
	)
	code := c.State.GetString(codeKey, "")
	if code == "" {
		return api.State{"complexity_issues": []any{}, "max_complexity": 0}, nil
	}

	src, err := parseSource(code)
	if err != nil {
		slog.Error("Complexity check failed",
			log.Error(err))
		return api.State{
			"complexity_issues": []any{},
			"max_complexity":    0,
			"error":             err.Error(),
		}, nil
	}

	issues := []any{}
	maxComplexity := 0
	for _, fn := range src.funcs() {
		cc := Complexity(fn)
		if cc > threshold {
			issues = append(issues, map[string]any{
				"name":        funcName(fn),
				"complexity":  cc,
				"line_number": src.line(fn.Pos()),
				"type":        funcKind(fn),
			})
		}
		maxComplexity = max(maxComplexity, cc)
	}

	slog.Info("Checked complexity",
		slog.Int("issues", len(issues)),
		slog.Int("threshold", threshold))
	return api.State{
		"complexity_issues":    issues,
		"max_complexity":       maxComplexity,
		"complexity_threshold": threshold,
	}, nil
}

func detectIssues(st api.State) (api.State, error) {
	code := st.GetString(codeKey, "")
	issues := []any{}
	if code == "" {
		return api.State{"issues": issues, "issue_count": 0}, nil
	}

	for i, line := range strings.Split(code, "\n") {
		n := i + 1
		trimmed := strings.TrimSpace(line)
		if len(line) > maxLineLength && !strings.HasPrefix(trimmed, "//") {
			issues = append(issues, issue(n, "line_too_long",
				fmt.Sprintf("Line exceeds %d characters", maxLineLength)))
		}
		if strings.Contains(line, "TODO") || strings.Contains(line, "FIXME") {
			issues = append(issues, issue(n, "todo_comment",
				"TODO/FIXME comment found"))
		}
		if isDebugPrint(trimmed) {
			issues = append(issues, issue(n, "debug_statement",
				"Print statement (consider using logging)"))
		}
	}

	if src, err := parseSource(code); err == nil {
		for _, d := range src.undocumented() {
			issues = append(issues, issue(d.line, "missing_docstring",
				fmt.Sprintf("%s '%s' missing doc comment", d.kind, d.name)))
		}
	}

	slog.Info("Detected issues",
		slog.Int("count", len(issues)))
	return api.State{
		"issues":      issues,
		"issue_count": len(issues),
	}, nil
}

func suggestImprovements(st api.State) (api.State, error) {
	suggestions := []any{}

	complexity := st.GetSlice("complexity_issues")
	if len(complexity) > 0 {
		var details []any
		for _, item := range complexity[:min(3, len(complexity))] {
			m, _ := item.(map[string]any)
			details = append(details, fmt.Sprintf("%v (complexity: %v)",
				m["name"], m["complexity"]))
		}
		suggestions = append(suggestions, map[string]any{
			"category": "complexity",
			"priority": "high",
			"message": fmt.Sprintf(
				"Reduce complexity in %d function(s)", len(complexity),
			),
			"details": details,
		})
	}

	issues := st.GetSlice("issues")
	counts := map[string]int{}
	for _, item := range issues {
		if m, ok := item.(map[string]any); ok {
			typ, _ := m["type"].(string)
			counts[typ]++
		}
	}
	for _, typ := range slices.Sorted(maps.Keys(counts)) {
		count := counts[typ]
		switch typ {
		case "missing_docstring":
			suggestions = append(suggestions, map[string]any{
				"category": "documentation",
				"priority": "medium",
				"message": fmt.Sprintf(
					"Add doc comments to %d declaration(s)", count,
				),
			})
		case "line_too_long":
			suggestions = append(suggestions, map[string]any{
				"category": "formatting",
				"priority": "low",
				"message":  fmt.Sprintf("Shorten %d long line(s)", count),
			})
		}
	}

	total := len(issues) + len(complexity)
	score := QualityScore(total, st.GetInt("function_count", 1))

	slog.Info("Generated suggestions",
		slog.Int("count", len(suggestions)),
		slog.Float64("quality_score", score))
	return api.State{
		"suggestions":      suggestions,
		"suggestion_count": len(suggestions),
		"quality_score":    score,
	}, nil
}

// QualityScore rates code from 0 to 100, losing ten points for each issue
// per function
func QualityScore(issues, functions int) float64 {
	functions = max(functions, 1)
	return max(0, 100-float64(issues)/float64(functions)*10)
}

// Complexity computes the cyclomatic complexity of a function: one plus the
// number of decision points in its body
func Complexity(fn *ast.FuncDecl) int {
	res := 1
	if fn.Body == nil {
		return res
	}
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt:
			res++
		case *ast.CaseClause:
			if n.List != nil {
				res++
			}
		case *ast.CommClause:
			if n.Comm != nil {
				res++
			}
		case *ast.BinaryExpr:
			if n.Op == token.LAND || n.Op == token.LOR {
				res++
			}
		}
		return true
	})
	return res
}

func parseSource(code string) (*sourceFile, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, sourceName, code, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	return &sourceFile{fset: fset, file: file}, nil
}

func (s *sourceFile) funcs() []*ast.FuncDecl {
	var res []*ast.FuncDecl
	for _, d := range s.file.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok {
			res = append(res, fn)
		}
	}
	return res
}

func (s *sourceFile) undocumented() []missingDoc {
	var res []missingDoc
	for _, d := range s.file.Decls {
		switch d := d.(type) {
		case *ast.FuncDecl:
			if d.Doc == nil {
				res = append(res, missingDoc{
					kind: "Function",
					name: funcName(d),
					line: s.line(d.Pos()),
				})
			}
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, sp := range d.Specs {
				ts := sp.(*ast.TypeSpec)
				if ts.Doc == nil && d.Doc == nil {
					res = append(res, missingDoc{
						kind: "Type",
						name: ts.Name.Name,
						line: s.line(ts.Pos()),
					})
				}
			}
		}
	}
	return res
}

func (s *sourceFile) line(pos token.Pos) int {
	return s.fset.Position(pos).Line
}

func funcName(fn *ast.FuncDecl) string {
	if recv := receiverType(fn); recv != "" {
		return recv + "." + fn.Name.Name
	}
	return fn.Name.Name
}

func funcKind(fn *ast.FuncDecl) string {
	if recv := receiverType(fn); recv != "" {
		return recv
	}
	return "function"
}

func receiverType(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

func paramNames(fn *ast.FuncDecl) []any {
	res := []any{}
	for _, field := range fn.Type.Params.List {
		if len(field.Names) == 0 {
			res = append(res, "_")
			continue
		}
		for _, name := range field.Names {
			res = append(res, name.Name)
		}
	}
	return res
}

func isDebugPrint(line string) bool {
	return strings.HasPrefix(line, "fmt.Print") ||
		strings.HasPrefix(line, "println(") ||
		strings.HasPrefix(line, "print(")
}

func issue(line int, typ, msg string) map[string]any {
	return map[string]any{
		"line":    line,
		"type":    typ,
		"message": msg,
	}
}
