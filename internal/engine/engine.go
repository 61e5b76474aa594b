package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kode4food/waypoint/internal/archive"
	"github.com/kode4food/waypoint/internal/condition"
	"github.com/kode4food/waypoint/internal/config"
	"github.com/kode4food/waypoint/internal/events"
	"github.com/kode4food/waypoint/internal/store"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/tool"
)

type (
	// Engine coordinates graph storage and the lifecycle of runs. Each run
	// is traversed on its own goroutine
	Engine struct {
		ctx      context.Context
		graphs   store.GraphStore
		runs     store.RunStore
		tools    *tool.Registry
		hub      *events.Hub
		conds    *condition.Registry
		exec     *Executor
		archiver *archiver
		config   *config.Config
		cancel   context.CancelFunc
		clock    Clock
		active   sync.Map // map[api.RunID]*runActor
		wg       sync.WaitGroup
	}

	// Dependencies are the collaborators an Engine is constructed with.
	// Archive is optional
	Dependencies struct {
		Graphs  store.GraphStore
		Runs    store.RunStore
		Tools   *tool.Registry
		Hub     *events.Hub
		Archive *archive.Archive
		Clock   Clock
	}
)

var (
	// ErrShutdownTimeout is returned by Stop when active runs outlast the
	// shutdown grace period
	ErrShutdownTimeout = errors.New("shutdown timeout exceeded")

	// ErrMissingStore is returned by New when no graph or run store is
	// provided
	ErrMissingStore = errors.New("engine requires graph and run stores")

	// ErrEngineStopped is returned when a run is started after Stop
	ErrEngineStopped = errors.New("engine stopped")

	// ErrRunNotActive is returned when cancelling a run that exists but is
	// no longer executing
	ErrRunNotActive = errors.New("run is not active")

	// ErrRunFinished is returned when subscribing to a run that has
	// already reached a terminal status
	ErrRunFinished = errors.New("run already finished")

	// ErrToolPanicked wraps the recovered value of a tool that panicked
	ErrToolPanicked = errors.New("tool panicked")
)

// New creates an Engine from configuration and its collaborators. Missing
// tool registries and hubs are replaced with empty ones
func New(cfg *config.Config, deps Dependencies) (*Engine, error) {
	if deps.Graphs == nil || deps.Runs == nil {
		return nil, ErrMissingStore
	}
	cfg = cfg.WithDefaults()

	policy, err := condition.ParsePolicy(cfg.ConditionPolicy)
	if err != nil {
		return nil, err
	}
	conds := condition.NewRegistry(
		cfg.ExpressionCacheSize, cfg.DefaultConditionLanguage,
	)
	if _, err := conds.Get(""); err != nil {
		return nil, err
	}

	tools := deps.Tools
	if tools == nil {
		tools = tool.NewRegistry()
	}
	hub := deps.Hub
	if hub == nil {
		hub = events.NewHub()
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		ctx:    ctx,
		cancel: cancel,
		graphs: deps.Graphs,
		runs:   deps.Runs,
		tools:  tools,
		hub:    hub,
		conds:  conds,
		config: cfg,
		clock:  clock,
		exec: NewExecutor(
			NewInvoker(tools, cfg.StepTimeoutDuration()),
			NewSelector(conds, policy),
			cfg.MaxEdgeTraversals,
			clock,
		),
	}
	if deps.Archive != nil {
		e.archiver = newArchiver(deps.Archive)
	}
	return e, nil
}

// Start begins background processing
func (e *Engine) Start() {
	slog.Info("Engine starting")
	if e.archiver != nil {
		e.archiver.Start()
	}
}

// Stop cancels every active run and waits for their goroutines to finish,
// up to the configured shutdown timeout
func (e *Engine) Stop() error {
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if e.archiver != nil {
			e.archiver.Flush()
		}
		slog.Info("Engine stopped")
		return nil
	case <-time.After(e.config.ShutdownTimeout):
		return ErrShutdownTimeout
	}
}

// Tools returns the engine's tool registry
func (e *Engine) Tools() *tool.Registry {
	return e.tools
}

// Conditions returns the engine's condition language registry
func (e *Engine) Conditions() *condition.Registry {
	return e.conds
}

// Hub returns the event hub run events are published to
func (e *Engine) Hub() *events.Hub {
	return e.hub
}

// ActiveRuns returns the number of runs currently being traversed
func (e *Engine) ActiveRuns() int {
	n := 0
	e.active.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (e *Engine) stopped() bool {
	return e.ctx.Err() != nil
}

func (e *Engine) publish(ev *api.Event) {
	e.hub.Publish(ev)
}
