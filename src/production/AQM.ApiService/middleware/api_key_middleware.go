package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIKeyHeader is the header device firmware sends its key in
const APIKeyHeader = "x-api-key"

// APIKeyMiddleware validates device authentication on ingestion routes.
// The key is read from x-api-key or from an "Authorization: Bearer" header.
// An empty expected key disables the check.
func APIKeyMiddleware(expectedKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expectedKey == "" {
			c.Next()
			return
		}

		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.JSON(http.StatusUnauthorized, gin.H{
					"message": "Missing API key",
				})
				c.Abort()
				return
			}

			// Check if it's a Bearer token
			if !strings.HasPrefix(authHeader, "Bearer ") {
				c.JSON(http.StatusUnauthorized, gin.H{
					"message": "Invalid authorization format. Expected 'Bearer <key>'",
				})
				c.Abort()
				return
			}
			key = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(expectedKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid API key",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
