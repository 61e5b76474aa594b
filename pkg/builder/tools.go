package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
	"github.com/kode4food/waypoint/pkg/tool"
)

// ToolServer exposes registered tool implementations over HTTP so a waypoint
// server can invoke them as remote tools. Each tool is served at
// POST /tools/{name}
type ToolServer struct {
	tools *tool.Registry
}

var ErrHandlerPanic = errors.New("tool handler panicked")

// NewToolServer creates a ToolServer with no tools
func NewToolServer() *ToolServer {
	return &ToolServer{
		tools: tool.NewRegistry(),
	}
}

// Register adds or replaces a served tool
func (s *ToolServer) Register(name api.ToolName, fn tool.Func) error {
	return s.tools.Register(name, fn)
}

// Endpoint returns the URL a tool is served at, given the server's base URL
func Endpoint(baseURL string, name api.ToolName) string {
	return fmt.Sprintf("%s/tools/%s", baseURL, name)
}

// Handler returns the HTTP handler serving every registered tool
func (s *ToolServer) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, api.MessageResponse{Message: "ok"})
	})
	router.POST("/tools/:name", s.invoke)
	return router
}

func (s *ToolServer) invoke(c *gin.Context) {
	name := api.ToolName(c.Param("name"))
	fn, ok := s.tools.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", api.ErrToolNotFound, name),
			Status: http.StatusNotFound,
		})
		return
	}

	var req api.ToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusBadRequest,
		})
		return
	}

	out, err := call(c.Request.Context(), fn, &tool.Call{
		State:  req.State,
		Config: req.Config,
		RunID:  req.RunID,
		NodeID: req.NodeID,
		Tool:   name,
	})
	if err != nil {
		slog.Warn("Tool failed",
			log.Tool(name),
			log.RunID(req.RunID),
			log.NodeID(req.NodeID),
			log.Error(err))
		c.JSON(http.StatusOK, api.ToolResult{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, api.ToolResult{Success: true, Outputs: out})
}

func call(
	ctx context.Context, fn tool.Func, c *tool.Call,
) (out api.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return fn(ctx, c)
}
