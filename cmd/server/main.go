package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/civicmirror/civic-backend/internal/classify"
	"github.com/civicmirror/civic-backend/internal/config"
	"github.com/civicmirror/civic-backend/internal/db"
	httpHandlers "github.com/civicmirror/civic-backend/internal/http/handlers"
	httpRouter "github.com/civicmirror/civic-backend/internal/http/router"
	"github.com/civicmirror/civic-backend/internal/logger"
	"github.com/civicmirror/civic-backend/internal/notify"
	"github.com/civicmirror/civic-backend/internal/repository"
	"github.com/civicmirror/civic-backend/internal/service"
	"github.com/civicmirror/civic-backend/internal/storage"
	"github.com/civicmirror/civic-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MediaBaseURL, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Классификатор подключаем только если задан адрес: без него категория
	// берётся из подсказки пользователя.
	var classifier service.ImageClassifier
	if cfg.ClassifierBaseURL != "" {
		classifier = classify.NewClient(cfg.ClassifierBaseURL, cfg.ClassifierTimeout)
	}

	// SMS: боевой Twilio клиент в production, лог вместо отправки иначе.
	var smsSender service.SMSNotifier
	if cfg.SMSAccountSID != "" && cfg.SMSAuthToken != "" && cfg.SMSFromNumber != "" {
		smsSender = notify.NewTwilioClient(cfg.SMSAccountSID, cfg.SMSAuthToken, cfg.SMSFromNumber, cfg.SMSTimeout)
	} else {
		smsSender = notify.LogSender{}
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	reportRepo := repository.NewReportRepository(dbConn)
	voteRepo := repository.NewVoteRepository(dbConn)
	commentRepo := repository.NewCommentRepository(dbConn)
	chatRepo := repository.NewChatRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub(ctx)
	go hub.Run()

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	reportService := service.NewReportService(reportRepo, voteRepo, userRepo, classifier, photoStorage, smsSender, classify.MapLabel, cfg.SMSAdminNumber, cfg.SMSTimeout)
	adminService := service.NewAdminService(userRepo, reportRepo)
	commentService := service.NewCommentService(commentRepo, reportRepo)
	chatService := service.NewChatService(chatRepo, userRepo, hub)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	reportHandler := httpHandlers.NewReportHandler(reportService)
	adminHandler := httpHandlers.NewAdminHandler(adminService, reportService)
	commentHandler := httpHandlers.NewCommentHandler(commentService)
	chatHandler := httpHandlers.NewChatHandler(chatService, authService)
	wsHandler := httpHandlers.NewWSHandler(hub, chatService, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, reportHandler, adminHandler, commentHandler, chatHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
