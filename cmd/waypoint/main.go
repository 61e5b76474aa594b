package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	app "github.com/kode4food/waypoint"
	"github.com/kode4food/waypoint/internal/archive"
	"github.com/kode4food/waypoint/internal/client"
	"github.com/kode4food/waypoint/internal/config"
	"github.com/kode4food/waypoint/internal/engine"
	"github.com/kode4food/waypoint/internal/loader"
	"github.com/kode4food/waypoint/internal/server"
	"github.com/kode4food/waypoint/internal/store"
	"github.com/kode4food/waypoint/internal/tools"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
	"github.com/kode4food/waypoint/pkg/tool"
	"github.com/kode4food/waypoint/pkg/util/call"
)

type waypoint struct {
	cfg        *config.Config
	store      store.Store
	archive    *archive.Archive
	tools      *tool.Registry
	engine     *engine.Engine
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrCreateStore   = errors.New("failed to create store")
	ErrCreateArchive = errors.New("failed to create archive")
	ErrLoadTools     = errors.New("failed to load tools")
	ErrLoadGraphs    = errors.New("failed to load graphs")
)

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := newWaypoint(cfg)
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		s.close()
		os.Exit(1)
	}
}

func newWaypoint(cfg *config.Config) *waypoint {
	return &waypoint{
		cfg:   cfg,
		tools: tool.NewRegistry(),
		quit:  make(chan os.Signal, 1),
	}
}

func (s *waypoint) run() error {
	ctx := context.Background()
	err := call.Perform(
		call.WithArg(s.initializeStore, ctx),
		call.WithArg(s.initializeArchive, ctx),
		s.initializeTools,
		s.initializeEngine,
		call.WithArg(s.loadGraphs, ctx),
	)
	if err != nil {
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *waypoint) setupLogging() {
	level, _ := log.ParseLevel(s.cfg.LogLevel)

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Waypoint starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("store_backend", s.cfg.Store.Backend),
		slog.String("redis_addr", s.cfg.Store.Redis.Addr),
		slog.Int("redis_db", s.cfg.Store.Redis.DB),
		slog.String("sqlite_path", s.cfg.Store.SQLitePath),
		slog.Bool("archive", s.cfg.ArchiveBucketURL != ""),
		slog.String("graphs_dir", s.cfg.GraphsDir),
		slog.String("tools_file", s.cfg.ToolsFile),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *waypoint) initializeStore(ctx context.Context) error {
	backend, err := store.ParseBackend(s.cfg.Store.Backend)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateStore, err)
	}

	switch backend {
	case store.BackendRedis:
		rc := s.cfg.Store.Redis
		s.store, err = store.OpenRedis(
			ctx, rc.Addr, rc.Password, rc.DB, rc.Prefix,
		)
	case store.BackendSQLite:
		s.store, err = store.OpenSQLite(ctx, s.cfg.Store.SQLitePath)
	default:
		s.store = store.NewMemory()
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateStore, err)
	}

	slog.Info("Store opened", slog.String("backend", string(backend)))
	return nil
}

func (s *waypoint) initializeArchive(ctx context.Context) error {
	if s.cfg.ArchiveBucketURL == "" {
		return nil
	}
	a, err := archive.Open(ctx, s.cfg.ArchiveBucketURL, "")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateArchive, err)
	}
	s.archive = a
	return nil
}

func (s *waypoint) initializeTools() error {
	tools.RegisterCodeReview(s.tools)
	if s.cfg.ToolsFile == "" {
		return nil
	}

	defs, err := loader.ReadTools(s.cfg.ToolsFile)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadTools, err)
	}
	cl := client.NewHTTPClient(s.cfg.StepTimeoutDuration())
	if err := tools.RegisterHTTP(s.tools, cl, defs); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadTools, err)
	}
	return nil
}

func (s *waypoint) initializeEngine() error {
	eng, err := engine.New(s.cfg, engine.Dependencies{
		Graphs:  s.store,
		Runs:    s.store,
		Tools:   s.tools,
		Archive: s.archive,
	})
	if err != nil {
		return err
	}
	s.engine = eng
	s.engine.Start()
	return nil
}

func (s *waypoint) loadGraphs(ctx context.Context) error {
	g := tools.CodeReviewGraph(
		tools.DefaultComplexityThreshold,
		tools.DefaultQualityThreshold,
		tools.DefaultReviewIterations,
	)
	_, err := s.engine.CreateGraph(ctx, g)
	if err != nil && !errors.Is(err, api.ErrGraphExists) {
		return fmt.Errorf("%w: %w", ErrLoadGraphs, err)
	}

	if s.cfg.GraphsDir == "" {
		return nil
	}
	ids, err := loader.LoadGraphs(ctx, s.engine, s.cfg.GraphsDir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadGraphs, err)
	}
	slog.Info("Graphs loaded",
		slog.String("dir", s.cfg.GraphsDir),
		slog.Int("count", len(ids)))
	return nil
}

func (s *waypoint) startServer() {
	s.apiServer = server.NewServer(s.engine)
	router := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *waypoint) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	s.close()

	slog.Info("Server exited")
}

func (s *waypoint) close() {
	if s.engine != nil {
		if err := s.engine.Stop(); err != nil {
			slog.Error("Engine shutdown failed", log.Error(err))
		}
	}
	if s.archive != nil {
		_ = s.archive.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}
