package routes

import (
	"minitalk/internal/handlers"
	"minitalk/internal/middleware"
	"minitalk/internal/services"
	"minitalk/pkg/database"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Match     *handlers.MatchHandler
	Chat      *handlers.ChatHandler
	Message   *handlers.MessageHandler
	Support   *handlers.SupportHandler
	User      *handlers.UserHandler
	Report    *handlers.ReportHandler
	Admin     *handlers.AdminHandler
	WebSocket *handlers.WebSocketHandler
}

// Setup wires the full route tree.
func Setup(router *gin.Engine, h *Handlers, auth *services.AuthService, users *services.UserService, allowedOrigins []string) {
	router.Use(middleware.CORS(allowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":   "ok",
			"database": database.HealthCheck(),
		})
	})

	api := router.Group("/api")

	// Public auth endpoints
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/telegram", h.Auth.TelegramAuth)
		authGroup.POST("/dev", h.Auth.DevAuth)
	}

	// Everything else needs a session. Matchmaking gets its own, tighter
	// rate budget since clients poll it.
	sessionAuth := middleware.SessionAuth(auth, users)
	generalLimit := middleware.NewRateLimiter(10, 30)
	matchLimit := middleware.NewRateLimiter(2, 6)

	user := api.Group("/")
	user.Use(sessionAuth, generalLimit.Middleware())
	{
		user.GET("/me", h.User.GetProfile)
		user.PUT("/me", h.User.UpdateProfile)
		user.POST("/presence", h.User.Heartbeat)
		user.POST("/offline", h.User.GoOffline)

		user.GET("/chats", h.Chat.GetUserChats)
		user.POST("/chats", h.Chat.CreateChat)
		user.GET("/chats/:chatId", h.Chat.GetChat)
		user.POST("/chats/:chatId/end", h.Chat.EndChat)
		user.GET("/chats/:chatId/messages", h.Message.GetMessages)
		user.POST("/chats/:chatId/messages", h.Message.SendMessage)
		user.POST("/chats/:chatId/read", h.Message.MarkRead)

		user.GET("/support/chat", h.Support.GetSupportChat)
		user.POST("/support/messages", h.Support.SendSupportMessage)

		user.POST("/reports", h.Report.FileReport)
	}

	match := api.Group("/match")
	match.Use(sessionAuth, matchLimit.Middleware())
	{
		match.POST("/find", h.Match.FindRandomChat)
		match.GET("/status", h.Match.CheckMatchStatus)
		match.POST("/cancel", h.Match.CancelSearch)
	}

	// WebSocket upgrade; token arrives as a query parameter.
	router.GET("/ws", sessionAuth, h.WebSocket.Connect)

	setupAdminRoutes(router, h, auth)
}

func setupAdminRoutes(router *gin.Engine, h *Handlers, auth *services.AuthService) {
	router.POST("/admin/api/login", h.Auth.AdminLogin)

	admin := router.Group("/admin/api")
	admin.Use(middleware.AdminAuth(auth))
	{
		admin.GET("/dashboard", h.Admin.Dashboard)

		admin.GET("/users", h.Admin.ListUsers)
		admin.PUT("/users/:userId/status", h.Admin.SetUserStatus)

		admin.GET("/chats", h.Admin.ListChats)

		admin.GET("/support/inbox", h.Admin.SupportInbox)
		admin.POST("/support/:chatId/reply", h.Support.ReplyToSupportChat)
		admin.POST("/support/:chatId/resolve", h.Admin.ResolveSupportChat)

		admin.GET("/reports", h.Admin.ListReports)
		admin.POST("/reports/:reportId/review", h.Admin.ReviewReport)
	}
}
