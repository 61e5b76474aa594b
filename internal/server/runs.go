package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/waypoint/internal/engine"
	"github.com/kode4food/waypoint/pkg/api"
)

// ErrGraphIDRequired is returned when a run request names no graph
var ErrGraphIDRequired = errors.New("graph_id is required")

func (s *Server) listRuns(c *gin.Context) {
	runs, err := s.engine.ListRuns(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	res := make([]*api.RunDigest, 0, len(runs))
	for _, r := range runs {
		res = append(res, r.Digest())
	}
	c.JSON(http.StatusOK, api.RunsListResponse{
		Runs:  res,
		Count: len(res),
	})
}

func (s *Server) startRun(c *gin.Context) {
	var req api.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}
	if req.GraphID == "" {
		respondError(c, fmt.Errorf("%w: %w", ErrInvalidJSON, ErrGraphIDRequired))
		return
	}

	var opts []engine.RunOption
	if req.RunID != "" {
		opts = append(opts, engine.WithRunID(api.SanitizeID(req.RunID)))
	}

	id, err := s.engine.StartRun(
		c.Request.Context(), req.GraphID, req.InitialState, opts...,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, api.RunStartedResponse{
		RunID:   id,
		Status:  api.RunRunning,
		Message: "Run started",
	})
}

func (s *Server) getRun(c *gin.Context) {
	id := api.RunID(c.Param("runID"))

	r, err := s.engine.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, fmt.Errorf("%w: %s", err, id))
		return
	}
	c.JSON(http.StatusOK, api.RunStateResponse{
		CurrentState: r.State,
		RunID:        r.ID,
		Status:       r.Status,
		Log:          r.Log,
	})
}

func (s *Server) getResult(c *gin.Context) {
	id := api.RunID(c.Param("runID"))

	r, err := s.engine.GetResult(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, r)
	case errors.Is(err, api.ErrRunInProgress):
		c.JSON(http.StatusAccepted, api.RunStartedResponse{
			RunID:   r.ID,
			Status:  r.Status,
			Message: "Run in progress",
		})
	default:
		respondError(c, fmt.Errorf("%w: %s", err, id))
	}
}

func (s *Server) cancelRun(c *gin.Context) {
	id := api.RunID(c.Param("runID"))

	if err := s.engine.CancelRun(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, api.MessageResponse{
		Message: "Run cancellation requested",
	})
}
