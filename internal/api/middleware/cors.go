package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS returns a CORS middleware. The session header is exposed so browser
// clients can continue a streamed conversation.
func CORS(allowOrigins []string, exposeHeaders ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := slices.Contains(allowOrigins, "*") || (origin != "" && slices.Contains(allowOrigins, origin))
		if allowed {
			if origin != "" {
				c.Header("Access-Control-Allow-Origin", origin)
			} else {
				c.Header("Access-Control-Allow-Origin", "*")
			}
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
			if len(exposeHeaders) > 0 {
				c.Header("Access-Control-Expose-Headers", strings.Join(exposeHeaders, ", "))
			}
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

