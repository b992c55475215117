package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/tradewatch/pkg/response"
)

// RecoveryMiddleware converts panics into a 500 envelope with the panic
// message, so no failure escapes as a bodyless 500.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				LogError("panic in %s %s: %v", c.Request.Method, c.Request.URL.Path, r)
				response.InternalError(c, fmt.Sprint(r))
				c.Abort()
			}
		}()
		c.Next()
	}
}
