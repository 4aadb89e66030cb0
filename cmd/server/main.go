package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minitalk/internal/config"
	"minitalk/internal/handlers"
	"minitalk/internal/notify"
	"minitalk/internal/routes"
	"minitalk/internal/services"
	"minitalk/internal/session"
	"minitalk/internal/websocket"
	"minitalk/pkg/database"
	"minitalk/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger.Init()

	// Load configuration
	cfg := config.Load()

	// Initialize databases
	if err := database.InitMongoDB(cfg.Database.MongoDB); err != nil {
		logger.Fatal("Failed to connect to MongoDB: " + err.Error())
	}
	if err := database.InitRedis(cfg.Database.Redis); err != nil {
		logger.WithError(err).Warn("Redis unavailable, presence mirror and session cache disabled")
	}

	db := database.GetDatabase()
	rdb := database.GetRedis()

	// Services
	sessionStore := session.NewStore(rdb, cfg.Security.SessionDuration)
	userService := services.NewUserService(db, rdb, cfg.Matching.StaleAfter)
	statsService := services.NewStatsService(db)
	chatService := services.NewChatService(db, userService, statsService)
	messageService := services.NewMessageService(db, chatService, userService, statsService, cfg.Chat.PreviewMaxLen)
	supportService := services.NewSupportService(db, chatService, messageService, userService, statsService)
	matchingService := services.NewMatchingService(db, chatService, userService, statsService, cfg.Matching)
	reportService := services.NewReportService(db)
	authService := services.NewAuthService(cfg, db, sessionStore)

	// WebSocket hub plus the change-stream watcher feeding it
	hub := websocket.NewHub()
	go hub.Run()

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go websocket.NewWatcher(db, hub).Run(watchCtx)

	// Match pushes go to the open socket and, optionally, as a bot DM
	matchTargets := []services.MatchNotifier{hub}
	if cfg.Telegram.NotifyEnabled {
		tgNotifier, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, userService, hub.IsUserOnline)
		if err != nil {
			logger.WithError(err).Warn("Telegram notifier disabled")
		} else if tgNotifier != nil {
			matchTargets = append(matchTargets, tgNotifier)
		}
	}
	matchingService.SetNotifier(notify.NewFanout(matchTargets...))

	// Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	h := &routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, userService),
		Match:     handlers.NewMatchHandler(matchingService, userService),
		Chat:      handlers.NewChatHandler(chatService, messageService, hub),
		Message:   handlers.NewMessageHandler(messageService, chatService, cfg.Chat.MessagePageSize),
		Support:   handlers.NewSupportHandler(supportService, messageService),
		User:      handlers.NewUserHandler(userService, statsService, supportService),
		Report:    handlers.NewReportHandler(reportService),
		Admin:     handlers.NewAdminHandler(userService, chatService, statsService, reportService, supportService, matchingService, hub),
		WebSocket: handlers.NewWebSocketHandler(hub, cfg.Server.WebSocket.ReadBufferSize, cfg.Server.WebSocket.WriteBufferSize),
	}
	routes.Setup(router, h, authService, userService, cfg.Server.CORS.AllowedOrigins)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}

	server := &http.Server{
		Addr:         cfg.Server.HTTP.Host + ":" + port,
		Handler:      router,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("Server starting on port: " + port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: " + err.Error())
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	stopWatch()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}

	database.CloseRedis()
	database.Disconnect()
}
