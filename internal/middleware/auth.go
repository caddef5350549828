package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"foodsnap-core/internal/response"

	"github.com/gin-gonic/gin"
)

// ClientAuthMiddleware guards the app-facing routes with X-API-Key.
// An empty apiKey disables the check.
func ClientAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		key := c.GetHeader("X-API-Key")
		if key == "" {
			key = c.Query("api_key")
		}

		if key == "" {
			response.ErrorJSON(c, http.StatusUnauthorized, "Missing api_key")
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			response.ErrorJSON(c, http.StatusUnauthorized, "Invalid api_key")
			c.Abort()
			return
		}

		c.Set("request_time", time.Now())
		c.Next()
	}
}

// BearerTokenMiddleware checks the Authorization header sent by the
// subscription backend webhook. An empty token disables the check.
func BearerTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		got := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer"))
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.ErrorJSON(c, http.StatusUnauthorized, "Invalid authorization")
			c.Abort()
			return
		}
		c.Next()
	}
}
