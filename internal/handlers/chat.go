package handlers

import (
	"errors"
	"net/http"

	"minitalk/internal/middleware"
	"minitalk/internal/models"
	"minitalk/internal/services"
	"minitalk/internal/session"
	"minitalk/internal/utils"
	"minitalk/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatHandler struct {
	chatService    *services.ChatService
	messageService *services.MessageService
	hub            *websocket.Hub
}

func NewChatHandler(chatService *services.ChatService, messageService *services.MessageService, hub *websocket.Hub) *ChatHandler {
	return &ChatHandler{
		chatService:    chatService,
		messageService: messageService,
		hub:            hub,
	}
}

// CreateChat starts a direct chat with a known partner, for example
// from a shared invite link. Reuses an existing active chat between
// the pair instead of creating a duplicate.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req struct {
		PartnerID string `json:"partner_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "partner_id is required")
		return
	}
	if req.PartnerID == userID {
		utils.ErrorResponse(c, http.StatusBadRequest, "Cannot start a chat with yourself")
		return
	}

	var sc *session.Context
	if s, ok := middleware.GetSession(c); ok {
		sc = &s
	}

	if exists, err := h.chatService.ActiveChatBetween(c.Request.Context(), userID, req.PartnerID); err == nil && exists {
		utils.ErrorResponse(c, http.StatusConflict, "An active chat with this user already exists")
		return
	}

	chat, err := h.chatService.CreateChat(c.Request.Context(), sc, userID, req.PartnerID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to create chat")
		return
	}

	utils.SuccessResponse(c, gin.H{"chat": chat, "created": true})
}

// GetUserChats returns the caller's chat list: active random chats and
// the support chat, pinned first, most recently active on top.
func (h *ChatHandler) GetUserChats(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	chats, err := h.chatService.GetUserChats(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load chats")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"chats": chats,
		"total": len(chats),
	})
}

// GetChat returns one chat the caller participates in.
func (h *ChatHandler) GetChat(c *gin.Context) {
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

	// Authoritative count from the message documents; the denormalized
	// per-chat counter is for list badges only.
	unread, err := h.messageService.UnreadCount(c.Request.Context(), chatID, userID)
	if err != nil {
		unread = 0
	}

	utils.SuccessResponse(c, gin.H{
		"chat":   chat,
		"unread": unread,
	})
}

// EndChat closes a random chat for both participants. Safe to call
// twice; the second call is a no-op.
func (h *ChatHandler) EndChat(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	err := h.chatService.EndChat(c.Request.Context(), chatID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			utils.ErrorResponse(c, http.StatusNotFound, "Chat not found")
		case errors.Is(err, services.ErrNotParticipant):
			utils.ErrorResponse(c, http.StatusForbidden, "Not a participant of this chat")
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to end chat")
		}
		return
	}

	// Direct push so open sockets learn immediately even when change
	// streams are unavailable.
	h.hub.NotifyChatEnded(&models.Chat{ID: chatID}, userID)

	utils.SuccessResponseWithMessage(c, "Chat ended", nil)
}

func parseChatID(c *gin.Context) (primitive.ObjectID, bool) {
	chatID, err := primitive.ObjectIDFromHex(c.Param("chatId"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid chat id")
		return primitive.NilObjectID, false
	}
	return chatID, true
}
