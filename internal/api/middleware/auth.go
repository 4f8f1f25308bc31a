package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/ragchat/internal/api/respond"
	"github.com/liliang-cn/ragchat/internal/domain"
)

// Auth returns an API key authentication middleware.
// An empty apiKey disables the check.
func Auth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		key := c.GetHeader("X-API-Key")
		if key == "" {
			key, _ = strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			respond.Error(c, domain.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Next()
	}
}
