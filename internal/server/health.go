package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/waypoint"
	"github.com/kode4food/waypoint/pkg/api"
)

const statusHealthy = "healthy"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: waypoint.Name,
		Version: waypoint.Version,
		Status:  statusHealthy,
		Runs:    s.engine.ActiveRuns(),
	})
}

func (s *Server) listTools(c *gin.Context) {
	names := s.engine.Tools().Names()
	c.JSON(http.StatusOK, api.ToolsListResponse{
		Tools: names,
		Count: len(names),
	})
}
