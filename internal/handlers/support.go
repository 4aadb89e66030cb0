package handlers

import (
	"errors"
	"net/http"

	"minitalk/internal/middleware"
	"minitalk/internal/models"
	"minitalk/internal/services"
	"minitalk/internal/session"
	"minitalk/internal/utils"
	"minitalk/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SupportHandler struct {
	supportService *services.SupportService
	messageService *services.MessageService
}

func NewSupportHandler(supportService *services.SupportService, messageService *services.MessageService) *SupportHandler {
	return &SupportHandler{
		supportService: supportService,
		messageService: messageService,
	}
}

// GetSupportChat returns the caller's support chat, creating it with a
// welcome message on first contact.
func (h *SupportHandler) GetSupportChat(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var sc *session.Context
	if s, ok := middleware.GetSession(c); ok {
		sc = &s
	}

	chat, err := h.supportService.EnsureSupportChat(c.Request.Context(), sc, userID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to open support chat")
		return
	}

	utils.SuccessResponse(c, chat)
}

// SendSupportMessage delivers a message into the caller's support
// chat, creating the chat first if needed.
func (h *SupportHandler) SendSupportMessage(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req struct {
		Text       string      `json:"text" binding:"required"`
		ClientTime interface{} `json:"client_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "text is required")
		return
	}

	clientTime, err := parseClientTime(req.ClientTime)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid client_time")
		return
	}

	var sc *session.Context
	if s, ok := middleware.GetSession(c); ok {
		sc = &s
	}

	messageID, err := h.supportService.SendSupportMessage(c.Request.Context(), sc, userID, userID, req.Text, clientTime)
	if err != nil {
		if errors.Is(err, services.ErrEmptyMessage) {
			utils.ErrorResponse(c, http.StatusBadRequest, "Message is empty")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Could not send message, please try again")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message_id": messageID.Hex(),
	})
}

// ReplyToSupportChat is the console side: an operator answers inside a
// user's support chat.
func (h *SupportHandler) ReplyToSupportChat(c *gin.Context) {
	adminID := c.GetString(middleware.ContextAdminUser)

	chatID, err := primitive.ObjectIDFromHex(c.Param("chatId"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid chat id")
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "text is required")
		return
	}

	messageID, err := h.messageService.SendChatMessage(c.Request.Context(), nil, chatID, models.SupportID, req.Text, nil, "")
	if err != nil {
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			utils.ErrorResponse(c, http.StatusNotFound, "Chat not found")
		case errors.Is(err, services.ErrEmptyMessage):
			utils.ErrorResponse(c, http.StatusBadRequest, "Message is empty")
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "Could not send message")
		}
		return
	}

	logger.LogAdminAction(adminID, "support_reply", chatID.Hex(), nil)

	utils.SuccessResponse(c, gin.H{
		"message_id": messageID.Hex(),
	})
}
