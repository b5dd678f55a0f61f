package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/agrisense/internal/auth"
	"github.com/example/agrisense/internal/repository"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("username and password are required"))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		s.writeError(c, badRequest("username and password are required"))
		return
	}

	op, err := s.deps.Operators.FindOperator(c.Request.Context(), req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := auth.CheckPassword(op.PasswordHash, req.Password); err != nil {
		s.logger.Info("rejected login", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, expires, err := auth.IssueToken(s.auth.JWTSecret, s.auth.JWTAudience, op.Username, s.auth.TokenTTL, s.now())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expires.UTC(),
		"username":   op.Username,
		"role":       op.Role,
	})
}

func (s *Server) serveLive(c *gin.Context) {
	s.deps.Live.ServeWS(c.Writer, c.Request, currentUser(c))
}
