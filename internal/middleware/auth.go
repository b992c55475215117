package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tradewatch/internal/service"
	"github.com/tradewatch/pkg/response"
)

// tokenEqual compares shared secrets in constant time. An empty expected
// secret never matches: an unconfigured token must not open the endpoint.
func tokenEqual(got, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// QueryTokenAuth guards an endpoint with a shared secret passed as a query
// parameter (the pull and webhook surfaces).
func QueryTokenAuth(param, expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.Query(param))
		if !tokenEqual(token, strings.TrimSpace(expected)) {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

// BearerTokenAuth guards an endpoint with a shared secret passed as a
// bearer token (the direct fill surface).
func BearerTokenAuth(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}
		if !tokenEqual(strings.TrimSpace(parts[1]), strings.TrimSpace(expected)) {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

// JWTAuth guards the dashboard with a session token issued by the auth
// service.
func JWTAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		if _, err := authService.ValidateToken(parts[1]); err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Next()
	}
}
