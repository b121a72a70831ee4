package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/civicmirror/civic-backend/internal/http/middleware"
	"github.com/civicmirror/civic-backend/internal/models"
)

var errPrincipalMissing = errors.New("субъект не найден в контексте")

// currentPrincipal извлекает аутентифицированного субъекта из контекста.
func currentPrincipal(c *gin.Context) (models.Principal, error) {
	raw, exists := c.Get(middleware.ContextPrincipalKey)
	if !exists {
		return models.Principal{}, errPrincipalMissing
	}

	principal, ok := raw.(models.Principal)
	if !ok {
		return models.Principal{}, errPrincipalMissing
	}

	return principal, nil
}

// pathUUID возвращает UUID из параметра пути. Формат уже проверен
// middleware.UUIDValidator.
func pathUUID(c *gin.Context, name string) uuid.UUID {
	id, _ := uuid.Parse(c.Param(name))
	return id
}

// pagination извлекает limit/offset из query параметров.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
