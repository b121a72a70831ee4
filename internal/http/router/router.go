package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civicmirror/civic-backend/internal/config"
	"github.com/civicmirror/civic-backend/internal/http/handlers"
	"github.com/civicmirror/civic-backend/internal/http/middleware"
	"github.com/civicmirror/civic-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	reportHandler *handlers.ReportHandler,
	adminHandler *handlers.AdminHandler,
	commentHandler *handlers.CommentHandler,
	chatHandler *handlers.ChatHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS(cfg.MediaBaseURL, http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	// Аутентификация с жёстким rate limit: перебор паролей.
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Публичные маршруты: лента обращений доступна без входа.
	api.GET("/reports", reportHandler.List)
	api.GET("/reports/:id", middleware.UUIDValidator("id"), reportHandler.Get)
	api.GET("/reports/:id/comments", middleware.UUIDValidator("id"), commentHandler.List)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты.
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	protected.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		protected.GET("/users/me", authHandler.Me)
		protected.GET("/users/me/details", authHandler.GetDetails)
		protected.PUT("/users/me/details", authHandler.UpsertDetails)

		protected.POST("/reports", reportHandler.Create)
		protected.GET("/reports/mine", reportHandler.ListMine)
		protected.GET("/reports/voted", reportHandler.ListVoted)
		protected.POST("/reports/:id/vote", middleware.UUIDValidator("id"), reportHandler.Vote)
		protected.POST("/reports/:id/comments", middleware.UUIDValidator("id"), commentHandler.Create)
		protected.DELETE("/comments/:id", middleware.UUIDValidator("id"), commentHandler.Delete)

		protected.GET("/chat/room", chatHandler.Room)
		protected.GET("/chat/messages", chatHandler.History)
		protected.POST("/chat/messages", chatHandler.Post)

		// Bootstrap первого суперпользователя проходит этим же маршрутом,
		// поэтому он не под RequireSuperuser: решает сервис.
		protected.POST("/admin/users/:id/promote", middleware.UUIDValidator("id"), adminHandler.Promote)
	}

	// Маршруты администраторов.
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager))
	admin.Use(middleware.RequireSuperuser())
	{
		admin.GET("/reports", adminHandler.Queue)
		admin.PATCH("/reports/:id/status", middleware.UUIDValidator("id"), adminHandler.Transition)
		admin.GET("/stats", adminHandler.Stats)
		admin.PATCH("/users/:id/role", middleware.UUIDValidator("id"), adminHandler.SetRole)
	}

	return r
}
