// Package auth validates and issues the HS256 tokens guarding the API.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userIDKey contextKey = "authUserID"

// GetUserID retrieves the authenticated subject from context.
func GetUserID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if value, ok := ctx.Value(userIDKey).(string); ok && value != "" {
		return value, true
	}
	return "", false
}

// Option tunes JWTMiddleware.
type Option func(*options)

type options struct {
	queryToken bool
}

// AllowQueryToken accepts a token query parameter when the Authorization
// header is absent. Browsers cannot set headers on websocket upgrades; use it
// only on those routes since query strings end up in access logs.
func AllowQueryToken() Option {
	return func(o *options) { o.queryToken = true }
}

// JWTMiddleware validates bearer tokens and injects user identity.
func JWTMiddleware(secret, audience string, opts ...Option) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	audience = strings.TrimSpace(audience)
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		if secret == "" {
			unauthorized(c, "missing JWT secret")
			return
		}

		tokenString, err := requestToken(c.Request, o.queryToken)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}

		subject, err := ParseToken(secret, audience, tokenString)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}

		ctx := context.WithValue(c.Request.Context(), userIDKey, subject)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(userIDKey), subject)

		c.Next()
	}
}

// ParseToken verifies an HS256 token and returns its subject.
func ParseToken(secret, audience, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}
	if audience != "" && !containsAudience(claims.Audience, audience) {
		return "", errors.New("invalid audience")
	}
	if claims.Subject == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

func requestToken(r *http.Request, allowQuery bool) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" && allowQuery {
		if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
			return token, nil
		}
	}
	return extractBearerToken(header)
}

func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("token missing")
	}
	return token, nil
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}

func containsAudience(claims jwt.ClaimStrings, expected string) bool {
	for _, aud := range claims {
		if aud == expected {
			return true
		}
	}
	return false
}
