package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/agrisense/internal/capture"
	"github.com/example/agrisense/internal/config"
	"github.com/example/agrisense/internal/imageprocessor"
	"github.com/example/agrisense/internal/usecase"
)

// multipartOverhead leaves room for form boundaries and headers around the
// image part.
const multipartOverhead = 1 << 20

type healthCheckRequest struct {
	ImageURL string         `json:"image_url"`
	DataURL  string         `json:"data_url"`
	Camera   *cameraRequest `json:"camera"`
}

type cameraRequest struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

func defaultCamera(cfg config.CameraConfig) capture.Camera {
	port, err := strconv.Atoi(cfg.DefaultPort)
	if err != nil {
		port = 4747
	}
	ip := cfg.DefaultIP
	if ip == "" {
		ip = "192.168.1.2"
	}
	return capture.Camera{IP: ip, Port: port}
}

func (s *Server) healthCheck(c *gin.Context) {
	s.runHealthCheck(c, "")
}

func (s *Server) cropHealthCheck(c *gin.Context) {
	s.runHealthCheck(c, c.Param("id"))
}

func (s *Server) runHealthCheck(c *gin.Context, cropID string) {
	raw, err := s.readImage(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	result, err := s.deps.HealthChecks.Analyze(c.Request.Context(), currentUser(c), cropID, raw)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// readImage returns the image bytes from a multipart upload or from the
// URL, data URL or camera named in a JSON body.
func (s *Server) readImage(c *gin.Context) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType == "multipart/form-data" {
		return s.readUpload(c)
	}

	var req healthCheckRequest
	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload*2)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &requestError{status: http.StatusRequestEntityTooLarge, message: "image too large"}
		}
		return nil, badRequest("expected a multipart image upload or a JSON image source")
	}

	ctx := c.Request.Context()
	switch {
	case req.DataURL != "":
		return s.deps.Images.FromDataURL(req.DataURL)
	case req.ImageURL != "":
		return s.deps.Images.FromURL(ctx, req.ImageURL)
	case req.Camera != nil:
		cam := s.defaultCamera
		if ip := strings.TrimSpace(req.Camera.IP); ip != "" {
			cam.IP = ip
		}
		if req.Camera.Port != 0 {
			cam.Port = req.Camera.Port
		}
		raw, err := s.deps.Images.FromCamera(ctx, cam)
		if errors.Is(err, capture.ErrCameraUnreachable) {
			return nil, &requestError{status: http.StatusUnprocessableEntity, message: cam.UnreachableMessage()}
		}
		return raw, err
	default:
		return nil, badRequest("one of image, image_url, data_url or camera is required")
	}
}

func (s *Server) readUpload(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload+multipartOverhead)

	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, &requestError{status: http.StatusRequestEntityTooLarge, message: "image too large"}
		}
		return nil, badRequest("image file is required")
	}
	if file.Size > s.maxUpload {
		return nil, &requestError{status: http.StatusRequestEntityTooLarge, message: "image too large"}
	}

	declared, _, _ := mime.ParseMediaType(file.Header.Get("Content-Type"))
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}
	if declared != "" && declared != "application/octet-stream" && !imageprocessor.Supported(declared) {
		return nil, imageprocessor.ErrUnsupportedMediaType
	}

	src, err := file.Open()
	if err != nil {
		return nil, badRequest("unable to open image")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Server) healthCheckResult(c *gin.Context) {
	result, err := s.deps.HealthChecks.GetResult(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrProcessing) {
			c.JSON(http.StatusAccepted, gin.H{"request_id": c.Param("id"), "status": "processing"})
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) healthCheckDuplicates(c *gin.Context) {
	report, err := s.deps.HealthChecks.GetDuplicateReport(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) healthCheckMetrics(c *gin.Context) {
	summary, err := s.deps.HealthChecks.GetMetricsSummary(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
