package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/kode4food/waypoint/internal/engine"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/util"
)

// Server implements the HTTP API server for the workflow engine
type Server struct {
	engine  *engine.Engine
	sockets util.Set[*Client]
	mu      sync.Mutex
}

var (
	// ErrInvalidJSON is returned when a request body cannot be decoded
	ErrInvalidJSON = errors.New("invalid JSON")
)

// NewServer creates a new HTTP API server
func NewServer(eng *engine.Engine) *Server {
	return &Server{
		engine:  eng,
		sockets: util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.handleHealth)
	router.GET("/tools", s.listTools)

	graphs := router.Group("/graphs")
	{
		graphs.GET("", s.listGraphs)
		graphs.POST("", s.createGraph)
		graphs.GET("/:graphID", s.getGraph)
		graphs.DELETE("/:graphID", s.deleteGraph)
	}

	runs := router.Group("/runs")
	{
		runs.GET("", s.listRuns)
		runs.POST("", s.startRun)
		runs.GET("/:runID", s.getRun)
		runs.GET("/:runID/result", s.getResult)
		runs.POST("/:runID/cancel", s.cancelRun)
		runs.GET("/:runID/ws", s.streamRun)
	}

	router.GET("/ws/execute/:graphID", s.streamExecute)

	return router
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	c.JSON(status, api.ErrorResponse{
		Error:  err.Error(),
		Status: status,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, api.ErrGraphNotFound),
		errors.Is(err, api.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrGraphExists),
		errors.Is(err, api.ErrRunExists),
		errors.Is(err, engine.ErrRunNotActive):
		return http.StatusConflict
	case errors.Is(err, api.ErrInvalidGraph),
		errors.Is(err, ErrInvalidJSON):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrEngineStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
