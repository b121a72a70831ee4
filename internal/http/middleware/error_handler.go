package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/civicmirror/civic-backend/internal/logger"
	"github.com/civicmirror/civic-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно. Ошибки приложения
// переводятся в свой HTTP статус, всё остальное маскируется как 500:
// подробности внутренних сбоев клиенту не показываем.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		statusCode := http.StatusInternalServerError
		message := "внутренняя ошибка сервера"
		code := apperror.ErrCodeInternal

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			statusCode = appErr.HTTPStatus
			message = appErr.Message
			code = appErr.Code
		}

		entry := logger.Log.WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"status": statusCode,
		})
		if statusCode >= http.StatusInternalServerError {
			entry.WithError(err).Error("ошибка обработки запроса")
		} else {
			entry.WithError(err).Warn("отклонённый запрос")
		}

		c.JSON(statusCode, gin.H{
			"error": message,
			"code":  string(code),
		})
	}
}
