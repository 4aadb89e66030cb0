package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"minitalk/internal/middleware"
	"minitalk/internal/models"
	"minitalk/internal/services"
	"minitalk/internal/utils"
	"minitalk/internal/websocket"
	"minitalk/pkg/database"
	"minitalk/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AdminHandler struct {
	userService     *services.UserService
	chatService     *services.ChatService
	statsService    *services.StatsService
	reportService   *services.ReportService
	supportService  *services.SupportService
	matchingService *services.MatchingService
	hub             *websocket.Hub
}

func NewAdminHandler(
	userService *services.UserService,
	chatService *services.ChatService,
	statsService *services.StatsService,
	reportService *services.ReportService,
	supportService *services.SupportService,
	matchingService *services.MatchingService,
	hub *websocket.Hub,
) *AdminHandler {
	return &AdminHandler{
		userService:     userService,
		chatService:     chatService,
		statsService:    statsService,
		reportService:   reportService,
		supportService:  supportService,
		matchingService: matchingService,
		hub:             hub,
	}
}

// Dashboard aggregates the console landing numbers.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	appStats, err := h.statsService.GetAppStats(ctx)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load app stats")
		return
	}

	userSummary, err := h.userService.GetUserSummary(ctx)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load user summary")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"app":             appStats,
		"users":           userSummary,
		"queue_size":      h.matchingService.QueueSize(ctx),
		"websocket":       h.hub.GetStats(),
		"connected_users": h.hub.OnlineUsers(),
		"database":        database.HealthCheck(),
	})
}

// ListUsers pages through user records.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, limit := pagination(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), page, limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list users")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// SetUserStatus bans, suspends or reinstates a user.
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	adminID := c.GetString(middleware.ContextAdminUser)
	targetID := c.Param("userId")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "status is required")
		return
	}

	if err := h.userService.SetStatus(c.Request.Context(), targetID, req.Status, adminID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "User not found")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to update user status")
		return
	}

	utils.SuccessResponseWithMessage(c, "User status updated", nil)
}

// ListChats pages through chat documents, optionally filtered by type
// or active state.
func (h *AdminHandler) ListChats(c *gin.Context) {
	page, limit := pagination(c)

	filter := bson.M{}
	if chatType := c.Query("type"); chatType != "" {
		filter["type"] = chatType
	}
	if active := c.Query("active"); active != "" {
		filter["is_active"] = active == "true"
	}

	chats, total, err := h.chatService.ListChats(c.Request.Context(), filter, page, limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list chats")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"chats": chats,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// SupportInbox lists support chats with unanswered user messages.
func (h *AdminHandler) SupportInbox(c *gin.Context) {
	chats, err := h.supportService.ListUnresolved(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load support inbox")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"chats": chats,
		"total": len(chats),
	})
}

// ResolveSupportChat marks a support conversation handled.
func (h *AdminHandler) ResolveSupportChat(c *gin.Context) {
	adminID := c.GetString(middleware.ContextAdminUser)

	chatID, err := primitive.ObjectIDFromHex(c.Param("chatId"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid chat id")
		return
	}

	if err := h.chatService.UpdateChatStatus(c.Request.Context(), chatID, models.ChatStatusResolved); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to resolve chat")
		return
	}

	logger.LogAdminAction(adminID, "support_resolved", chatID.Hex(), nil)

	utils.SuccessResponseWithMessage(c, "Support chat resolved", nil)
}

// ListReports pages through user reports, optionally by status.
func (h *AdminHandler) ListReports(c *gin.Context) {
	page, limit := pagination(c)

	reports, total, err := h.reportService.ListReports(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list reports")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"reports": reports,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// ReviewReport closes a report as resolved or dismissed.
func (h *AdminHandler) ReviewReport(c *gin.Context) {
	adminID := c.GetString(middleware.ContextAdminUser)

	reportID, err := primitive.ObjectIDFromHex(c.Param("reportId"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid report id")
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "status is required")
		return
	}

	if err := h.reportService.ReviewReport(c.Request.Context(), reportID, req.Status, req.Notes, adminID); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to review report")
		return
	}

	utils.SuccessResponseWithMessage(c, "Report reviewed", nil)
}

func pagination(c *gin.Context) (int64, int64) {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit
}
