package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"minitalk/internal/middleware"
	"minitalk/internal/services"
	"minitalk/internal/session"
	"minitalk/internal/utils"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageService *services.MessageService
	chatService    *services.ChatService
	pageSize       int64
}

func NewMessageHandler(messageService *services.MessageService, chatService *services.ChatService, pageSize int64) *MessageHandler {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &MessageHandler{
		messageService: messageService,
		chatService:    chatService,
		pageSize:       pageSize,
	}
}

// SendMessage appends a message to a chat the caller participates in.
// The optional client timestamp is stored alongside the authoritative
// server one.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

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

	chat, err := h.chatService.GetChatByID(c.Request.Context(), chatID)
	if err != nil {
		if errors.Is(err, services.ErrChatNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Chat not found")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load chat")
		return
	}
	if !chat.HasParticipant(userID) {
		utils.ErrorResponse(c, http.StatusForbidden, "Not a participant of this chat")
		return
	}

	var sc *session.Context
	if s, ok := middleware.GetSession(c); ok {
		sc = &s
	}

	messageID, err := h.messageService.SendChatMessage(c.Request.Context(), sc, chatID, userID, req.Text, clientTime, "")
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage):
			utils.ErrorResponse(c, http.StatusBadRequest, "Message is empty")
		case errors.Is(err, services.ErrChatEnded):
			utils.ErrorResponse(c, http.StatusConflict, "Chat has ended")
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "Could not send message, please try again")
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message_id": messageID.Hex(),
	})
}

// parseClientTime normalizes the optional client timestamp, which
// arrives as an RFC3339 string or an epoch number depending on the
// client build.
func parseClientTime(raw interface{}) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := utils.ToTime(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetMessages returns the chat's history in chronological order.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	chat, err := h.chatService.GetChatByID(c.Request.Context(), chatID)
	if err != nil {
		if errors.Is(err, services.ErrChatNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Chat not found")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load chat")
		return
	}
	if !chat.HasParticipant(userID) {
		utils.ErrorResponse(c, http.StatusForbidden, "Not a participant of this chat")
		return
	}

	limit, err := strconv.ParseInt(c.Query("limit"), 10, 64)
	if err != nil || limit <= 0 || limit > h.pageSize {
		limit = h.pageSize
	}

	messages, err := h.messageService.GetChatMessages(c.Request.Context(), chatID, limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load messages")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"messages": messages,
		"total":    len(messages),
	})
}

// MarkRead clears the caller's unread state for a chat.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	err := h.messageService.MarkMessagesAsRead(c.Request.Context(), chatID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			utils.ErrorResponse(c, http.StatusNotFound, "Chat not found")
		case errors.Is(err, services.ErrNotParticipant):
			utils.ErrorResponse(c, http.StatusForbidden, "Not a participant of this chat")
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to mark messages read")
		}
		return
	}

	utils.SuccessResponseWithMessage(c, "Messages marked read", nil)
}
