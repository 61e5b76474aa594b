// Package loader reads graph and tool definitions from disk at startup
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/kode4food/waypoint/internal/tools"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
)

type (
	// GraphCreator stores validated graph definitions
	GraphCreator interface {
		CreateGraph(context.Context, *api.Graph) (api.GraphID, error)
	}

	// ToolsFile is the document TOOLS_FILE holds
	ToolsFile struct {
		Tools []*tools.HTTPTool `json:"tools" yaml:"tools"`
	}
)

var (
	ErrUnsupportedFormat = errors.New("unsupported definition format")
	ErrReadDefinition    = errors.New("failed to read definition")
)

var graphExtensions = []string{".yaml", ".yml", ".json"}

// LoadGraphs creates every graph defined in dir, in file name order. Graphs
// that already exist are skipped, so a persistent store can be reloaded
func LoadGraphs(
	ctx context.Context, gc GraphCreator, dir string,
) ([]api.GraphID, error) {
	paths, err := graphFiles(dir)
	if err != nil {
		return nil, err
	}

	var res []api.GraphID
	for _, path := range paths {
		g, err := ReadGraph(path)
		if err != nil {
			return res, err
		}
		id, err := gc.CreateGraph(ctx, g)
		if errors.Is(err, api.ErrGraphExists) {
			slog.Info("Graph already loaded",
				log.GraphID(g.ID),
				slog.String("path", path))
			continue
		}
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		res = append(res, id)
	}
	return res, nil
}

// ReadGraph decodes a single graph definition. YAML and JSON are accepted,
// selected by file extension
func ReadGraph(path string) (*api.Graph, error) {
	var g api.Graph
	if err := readDefinition(path, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// ReadTools decodes the HTTP tool declarations held in path
func ReadTools(path string) ([]*tools.HTTPTool, error) {
	var f ToolsFile
	if err := readDefinition(path, &f); err != nil {
		return nil, err
	}
	return f.Tools, nil
}

func graphFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadDefinition, err)
	}

	var res []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if slices.Contains(graphExtensions, ext) {
			res = append(res, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(res)
	return res, nil
}

func readDefinition(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadDefinition, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, target)
	case ".json":
		err = json.Unmarshal(data, target)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrReadDefinition, path, err)
	}
	return nil
}
