package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/agrisense/internal/models"
	"github.com/example/agrisense/internal/usecase"
)

func (s *Server) listSensors(c *gin.Context) {
	sensors, err := s.deps.Dashboard.ListSensors(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sensors)
}

func (s *Server) sensorSummary(c *gin.Context) {
	summary, err := s.deps.Dashboard.SensorSummary(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) sensorHistory(c *gin.Context) {
	sensorType := models.SensorType(c.Param("type"))
	rangeName := c.DefaultQuery("range", usecase.DefaultHistoryRange)

	points, err := s.deps.Dashboard.History(c.Request.Context(), sensorType, rangeName)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": sensorType, "range": rangeName, "points": points})
}

type readingRequest struct {
	SensorID  string            `json:"sensor_id"`
	Type      models.SensorType `json:"type"`
	Value     *float64          `json:"value"`
	Unit      string            `json:"unit"`
	Location  string            `json:"location"`
	Timestamp time.Time         `json:"timestamp"`
}

func (s *Server) recordReading(c *gin.Context) {
	var req readingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("invalid reading payload"))
		return
	}
	if req.Value == nil {
		s.writeError(c, badRequest("value is required"))
		return
	}
	reading, err := s.deps.Readings.Record(c.Request.Context(), usecase.Reading{
		SensorID:  req.SensorID,
		Type:      req.Type,
		Value:     *req.Value,
		Unit:      req.Unit,
		Location:  req.Location,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reading)
}

// exportHistory streams the history of every sensor type as CSV.
func (s *Server) exportHistory(c *gin.Context) {
	rangeName := c.DefaultQuery("range", usecase.DefaultHistoryRange)
	points, err := s.deps.Dashboard.ExportHistory(c.Request.Context(), rangeName)
	if err != nil {
		s.writeError(c, err)
		return
	}

	filename := fmt.Sprintf("sensor-history-%s-%s.csv", rangeName, s.now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"timestamp", "type", "value"})
	for _, p := range points {
		_ = w.Write([]string{
			p.Timestamp.UTC().Format(time.RFC3339),
			string(p.SensorType),
			strconv.FormatFloat(p.Value, 'f', -1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		s.logger.Warn("csv export interrupted", zap.Error(err))
	}
}

func (s *Server) listCrops(c *gin.Context) {
	crops, err := s.deps.Dashboard.ListCrops(c.Request.Context(), c.Query("search"), c.Query("status"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, crops)
}

func (s *Server) getCrop(c *gin.Context) {
	crop, err := s.deps.Dashboard.GetCrop(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, crop)
}

func (s *Server) listTeam(c *gin.Context) {
	team, err := s.deps.Dashboard.ListTeam(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (s *Server) listAlerts(c *gin.Context) {
	alerts, err := s.deps.Dashboard.ListAlerts(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (s *Server) markAlertRead(c *gin.Context) {
	if err := s.deps.Dashboard.MarkAlertRead(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) dismissAlert(c *gin.Context) {
	if err := s.deps.Dashboard.DismissAlert(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
