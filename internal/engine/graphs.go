package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
)

// CreateGraph validates and stores a graph definition, compiling each of its
// conditions so that syntax errors surface before any run starts. A graph
// without an ID is assigned one
func (e *Engine) CreateGraph(
	ctx context.Context, g *api.Graph,
) (api.GraphID, error) {
	if g == nil {
		return "", fmt.Errorf("%w: graph is nil", api.ErrInvalidGraph)
	}
	g = g.Clone()
	if g.ID == "" {
		g.ID = api.GraphID(uuid.NewString())
	} else {
		g.ID = api.SanitizeID(g.ID)
	}

	if err := g.Validate(); err != nil {
		return "", err
	}
	if err := e.conds.Validate(g); err != nil {
		return "", fmt.Errorf("%w: %w", api.ErrInvalidGraph, err)
	}

	if _, err := e.graphs.GetGraph(ctx, g.ID); err == nil {
		return "", fmt.Errorf("%w: %s", api.ErrGraphExists, g.ID)
	} else if !errors.Is(err, api.ErrGraphNotFound) {
		return "", err
	}

	g.CreatedAt = e.clock()
	if err := e.graphs.PutGraph(ctx, g); err != nil {
		return "", err
	}

	slog.Info("Graph created",
		log.GraphID(g.ID),
		slog.String("name", g.Name),
		slog.Int("nodes", len(g.Nodes)))
	return g.ID, nil
}

// GetGraph returns a stored graph definition
func (e *Engine) GetGraph(
	ctx context.Context, id api.GraphID,
) (*api.Graph, error) {
	return e.graphs.GetGraph(ctx, id)
}

// ListGraphs returns every stored graph definition
func (e *Engine) ListGraphs(ctx context.Context) ([]*api.Graph, error) {
	return e.graphs.ListGraphs(ctx)
}

// DeleteGraph removes a stored graph definition. Runs already started from
// it are unaffected
func (e *Engine) DeleteGraph(ctx context.Context, id api.GraphID) error {
	if err := e.graphs.DeleteGraph(ctx, id); err != nil {
		return err
	}
	slog.Info("Graph deleted",
		log.GraphID(id))
	return nil
}
