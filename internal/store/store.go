package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kode4food/waypoint/pkg/api"
)

type (
	// GraphStore persists graph definitions
	GraphStore interface {
		PutGraph(ctx context.Context, g *api.Graph) error
		GetGraph(ctx context.Context, id api.GraphID) (*api.Graph, error)
		ListGraphs(ctx context.Context) ([]*api.Graph, error)
		DeleteGraph(ctx context.Context, id api.GraphID) error
	}

	// RunStore persists run snapshots
	RunStore interface {
		PutRun(ctx context.Context, r *api.Run) error
		GetRun(ctx context.Context, id api.RunID) (*api.Run, error)
		ListRuns(ctx context.Context) ([]*api.Run, error)
	}

	// Store combines graph and run persistence behind one backend
	Store interface {
		GraphStore
		RunStore
		Close() error
	}

	// Backend names a Store implementation
	Backend string
)

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
	BackendSQLite Backend = "sqlite"
)

var (
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrMissingID      = errors.New("missing identifier")
)

// ParseBackend converts a backend name into a Backend
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case BackendMemory, BackendRedis, BackendSQLite:
		return b, nil
	case "":
		return BackendMemory, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
}

func sortGraphs(res []*api.Graph) []*api.Graph {
	slices.SortFunc(res, func(a, b *api.Graph) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return res
}

func sortRuns(res []*api.Run) []*api.Run {
	slices.SortFunc(res, func(a, b *api.Run) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return res
}
