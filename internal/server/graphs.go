package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/waypoint/pkg/api"
)

func (s *Server) listGraphs(c *gin.Context) {
	graphs, err := s.engine.ListGraphs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	res := make([]*api.GraphDigest, 0, len(graphs))
	for _, g := range graphs {
		res = append(res, g.Digest())
	}
	c.JSON(http.StatusOK, api.GraphsListResponse{
		Graphs: res,
		Count:  len(res),
	})
}

func (s *Server) createGraph(c *gin.Context) {
	var g api.Graph
	if err := c.ShouldBindJSON(&g); err != nil {
		respondError(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	id, err := s.engine.CreateGraph(c.Request.Context(), &g)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, api.GraphCreatedResponse{
		GraphID: id,
		Message: "Graph created",
	})
}

func (s *Server) getGraph(c *gin.Context) {
	id := api.GraphID(c.Param("graphID"))

	g, err := s.engine.GetGraph(c.Request.Context(), id)
	if err != nil {
		respondError(c, fmt.Errorf("%w: %s", err, id))
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) deleteGraph(c *gin.Context) {
	id := api.GraphID(c.Param("graphID"))

	if err := s.engine.DeleteGraph(c.Request.Context(), id); err != nil {
		respondError(c, fmt.Errorf("%w: %s", err, id))
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{
		Message: "Graph deleted",
	})
}
