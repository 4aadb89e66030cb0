package handlers

import (
	"errors"
	"net/http"

	"minitalk/internal/middleware"
	"minitalk/internal/services"
	"minitalk/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService    *services.UserService
	statsService   *services.StatsService
	supportService *services.SupportService
}

func NewUserHandler(userService *services.UserService, statsService *services.StatsService, supportService *services.SupportService) *UserHandler {
	return &UserHandler{
		userService:    userService,
		statsService:   statsService,
		supportService: supportService,
	}
}

// GetProfile returns the caller's user record and usage stats.
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Profile not found")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	stats, err := h.statsService.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		stats = nil
	}

	// Lookup only; first contact through the support endpoints creates it.
	supportChatID := ""
	if id, err := h.supportService.GetSupportChatID(c.Request.Context(), userID); err == nil && !id.IsZero() {
		supportChatID = id.Hex()
	}

	utils.SuccessResponse(c, gin.H{
		"user":            user,
		"stats":           stats,
		"support_chat_id": supportChatID,
	})
}

// UpdateProfile updates the caller's display name, age and interests.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req struct {
		Name      string   `json:"name"`
		Age       int      `json:"age"`
		Interests []string `json:"interests"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid profile payload")
		return
	}

	if err := h.userService.UpdateProfile(c.Request.Context(), userID, req.Name, req.Age, req.Interests); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Profile not found")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	utils.SuccessResponseWithMessage(c, "Profile updated", nil)
}

// Heartbeat refreshes the caller's presence so queue tickets stay
// eligible. The client calls this every couple of minutes while open.
func (h *UserHandler) Heartbeat(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	platform := ""
	if sc, ok := middleware.GetSession(c); ok {
		platform = sc.Platform
	}

	h.userService.TouchPresence(c.Request.Context(), userID, platform)

	utils.SuccessResponse(c, gin.H{"status": "online"})
}

// GoOffline marks the caller offline, typically on app close.
func (h *UserHandler) GoOffline(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	h.userService.SetOffline(c.Request.Context(), userID)

	utils.SuccessResponse(c, gin.H{"status": "offline"})
}
