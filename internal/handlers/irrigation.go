package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/agrisense/internal/agronomy"
)

func (s *Server) listZones(c *gin.Context) {
	zones, err := s.deps.Irrigation.ListZones(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, zones)
}

func (s *Server) setAutomation(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		s.writeError(c, badRequest("enabled is required"))
		return
	}
	zone, err := s.deps.Irrigation.SetAutomation(c.Request.Context(), c.Param("id"), *req.Enabled)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, zone)
}

func (s *Server) activateAll(c *gin.Context) {
	zones, err := s.deps.Irrigation.ActivateAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, zones)
}

func (s *Server) deactivateAll(c *gin.Context) {
	zones, err := s.deps.Irrigation.DeactivateAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, zones)
}

func (s *Server) irrigationUsage(c *gin.Context) {
	usage, err := s.deps.Irrigation.Usage(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

func (s *Server) estimateWater(c *gin.Context) {
	var in agronomy.WaterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.writeError(c, badRequest("invalid estimate payload"))
		return
	}
	estimate, err := s.deps.Irrigation.Estimate(in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, estimate)
}
