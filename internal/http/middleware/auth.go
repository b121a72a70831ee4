package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextPrincipalKey = "principal"
)

// AuthMiddleware проверяет JWT access токен и кладёт субъекта в контекст.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		principal, err := tokens.ParseAccess(raw)
		if err != nil || principal.UserID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "токен невалиден"})
			return
		}

		c.Set(ContextPrincipalKey, *principal)
		c.Next()
	}
}

// RequireSuperuser пропускает только суперпользователей. Ставится после
// AuthMiddleware на админские маршруты.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, exists := c.Get(ContextPrincipalKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
			return
		}

		principal, ok := raw.(models.Principal)
		if !ok || !principal.IsSuperuser {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "недостаточно прав"})
			return
		}

		c.Next()
	}
}
