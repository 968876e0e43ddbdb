package middleware

import (
	"net/http"
	"strings"

	"guild-loot/pkg/logger"
	"guild-loot/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by AuthMiddleware.
const (
	KeyExternalID  = "externalID"
	KeyCallerName  = "callerName"
	KeyCallerAdmin = "callerAdmin"
)

// AuthMiddleware checks the bearer token and stores the caller in the context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		claims, err := utils.ParseToken(secret, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(KeyExternalID, claims.ExternalID)
		c.Set(KeyCallerName, claims.Name)
		c.Set(KeyCallerAdmin, claims.Admin)
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), zap.String("caller", claims.ExternalID)))

		c.Next()
	}
}
