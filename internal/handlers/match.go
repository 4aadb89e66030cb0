package handlers

import (
	"net/http"

	"minitalk/internal/middleware"
	"minitalk/internal/services"
	"minitalk/internal/utils"

	"github.com/gin-gonic/gin"
)

type MatchHandler struct {
	matchingService *services.MatchingService
	userService     *services.UserService
}

func NewMatchHandler(matchingService *services.MatchingService, userService *services.UserService) *MatchHandler {
	return &MatchHandler{
		matchingService: matchingService,
		userService:     userService,
	}
}

// FindRandomChat runs one matchmaking pass for the caller. A match in
// the response means the caller claimed a waiting partner; otherwise
// the caller is now queued and should poll the status endpoint or wait
// for the match_found push.
func (h *MatchHandler) FindRandomChat(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	if sc, ok := middleware.GetSession(c); ok {
		if _, err := h.userService.EnsureUser(c.Request.Context(), userID, &sc); err != nil {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load profile")
			return
		}
	}

	result := h.matchingService.FindRandomChat(c.Request.Context(), userID)
	if result == nil {
		utils.SuccessResponse(c, gin.H{
			"matched": false,
			"status":  "searching",
		})
		return
	}

	utils.SuccessResponse(c, gin.H{
		"matched": true,
		"match":   result,
	})
}

// CheckMatchStatus is the poll half of match discovery: the passive
// party of a pairing learns about the chat here.
func (h *MatchHandler) CheckMatchStatus(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	result := h.matchingService.CheckMatchStatus(c.Request.Context(), userID)
	if result == nil {
		utils.SuccessResponse(c, gin.H{
			"matched": false,
			"status":  "searching",
		})
		return
	}

	utils.SuccessResponse(c, gin.H{
		"matched": true,
		"match":   result,
	})
}

// CancelSearch removes the caller's queue ticket.
func (h *MatchHandler) CancelSearch(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	if err := h.matchingService.CancelSearch(c.Request.Context(), userID); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to cancel search")
		return
	}

	utils.SuccessResponseWithMessage(c, "Search cancelled", nil)
}
