package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// All endpoints answer with a uniform envelope: {"ok": bool, "error"?: string}
// plus whatever result fields the handler adds. Failures carry no result
// fields.

// OK sends a successful envelope, merging the given fields.
func OK(c *gin.Context, fields gin.H) {
	body := gin.H{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Fail sends an error envelope with the given status code.
func Fail(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"ok":    false,
		"error": message,
	})
}

// BadRequest sends a 400 error envelope
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 error envelope
func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, message)
}

// Forbidden sends a 403 error envelope
func Forbidden(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, message)
}

// InternalError sends a 500 error envelope
func InternalError(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, message)
}

// BadGateway sends a 502 error envelope for upstream fetch failures
func BadGateway(c *gin.Context, message string) {
	Fail(c, http.StatusBadGateway, message)
}
