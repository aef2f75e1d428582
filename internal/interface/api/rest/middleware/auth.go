package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"compraser-api/internal/infrastructure/jwt"
)

const (
	CtxCallerRole = "callerRole"
	CtxCallerID   = "callerID"
)

// CleanupAuth accepts either the shared cleanup secret or a cleanup-role JWT signed with it.
func CleanupAuth(secret string, jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(
				http.StatusInternalServerError,
				gin.H{"error": "cleanup secret is not configured"},
			)
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "missing Authorization header"},
			)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "invalid token format"},
			)
			return
		}

		if subtle.ConstantTimeCompare([]byte(tokenStr), []byte(secret)) == 1 {
			c.Set(CtxCallerRole, jwt.RoleCleanup)
			c.Next()
			return
		}

		claims, err := jwtService.ValidateToken(tokenStr)
		if err != nil || claims.Role != jwt.RoleCleanup {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "invalid token"},
			)
			return
		}

		c.Set(CtxCallerRole, claims.Role)
		c.Set(CtxCallerID, claims.Subject)

		c.Next()
	}
}
