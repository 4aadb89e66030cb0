package websocket

import (
	"context"
	"sync"
	"time"

	"minitalk/internal/models"
	"minitalk/pkg/logger"
)

// Hub maintains the set of active clients and routes pushes to them.
// It doubles as the in-app delivery channel for match events: when the
// passive party of a pairing holds an open socket, the match_found
// frame arrives without waiting for the next status poll.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Clients organized by user ID
	userClients map[string]*Client

	// Clients subscribed to a chat, by chat ID hex
	chatClients map[string]map[*Client]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Pushes to a specific chat's subscribers
	ChatBroadcast chan *ChatMessage

	// Pushes to a specific user
	UserBroadcast chan *UserMessage

	stats *HubStats

	mu sync.RWMutex
}

// ChatMessage targets every subscriber of one chat.
type ChatMessage struct {
	ChatID  string
	Message *WSMessage
	Exclude string // user ID to skip
}

// UserMessage targets one user's connection.
type UserMessage struct {
	UserID  string
	Message *WSMessage
}

// HubStats contains hub statistics.
type HubStats struct {
	TotalClients int       `json:"total_clients"`
	OnlineUsers  int       `json:"online_users"`
	OpenChats    int       `json:"open_chats"`
	LastUpdated  time.Time `json:"last_updated"`
	mu           sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		userClients:   make(map[string]*Client),
		chatClients:   make(map[string]map[*Client]bool),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		ChatBroadcast: make(chan *ChatMessage),
		UserBroadcast: make(chan *UserMessage),
		stats:         &HubStats{LastUpdated: time.Now()},
	}
}

// Run starts the hub and handles client registration/unregistration.
func (h *Hub) Run() {
	go h.startPeriodicTasks()

	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case chatMsg := <-h.ChatBroadcast:
			h.broadcastToChat(chatMsg)

		case userMsg := <-h.UserBroadcast:
			h.broadcastToUser(userMsg)
		}
	}
}

// NotifyMatch satisfies the matching service's push interface. Runs on
// the caller's goroutine, so it only enqueues.
func (h *Hub) NotifyMatch(ctx context.Context, chat *models.Chat, passiveUserID string) {
	partnerID := chat.PartnerOf(passiveUserID)
	meta := chat.Meta[partnerID]

	message := NewWSMessage(MessageTypeMatchFound, "", nil)
	message.AddData("match", MatchData{
		ChatID:          chat.ID.Hex(),
		PartnerID:       partnerID,
		PartnerName:     meta.Name,
		PartnerPlatform: meta.Platform,
	})

	h.PushToUser(passiveUserID, message)

	logger.LogMatchEvent("match_pushed", passiveUserID, map[string]interface{}{
		"chat_id": chat.ID.Hex(),
	})
}

// NotifyChatEnded lets open sockets drop out of an ended chat without
// waiting for a failed send.
func (h *Hub) NotifyChatEnded(chat *models.Chat, endedBy string) {
	message := NewWSMessage(MessageTypeChatEnded, "", map[string]interface{}{
		"chat_id":  chat.ID.Hex(),
		"ended_by": endedBy,
	})
	message.SetChatID(chat.ID.Hex())

	h.PushToChat(chat.ID.Hex(), "", message)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// One socket per user; a reconnect supersedes the old one.
	if prev, ok := h.userClients[client.UserID]; ok && prev != client {
		h.dropClientLocked(prev)
	}

	h.clients[client] = true
	h.userClients[client.UserID] = client

	h.updateStats()

	logger.WithFields(map[string]interface{}{
		"user_id":       client.UserID,
		"total_clients": len(h.clients),
	}).Info("Client registered")

	welcome := NewWSMessage(MessageTypeSuccess, "Connected successfully", map[string]interface{}{
		"user_id":     client.UserID,
		"server_time": time.Now(),
	})
	client.SendMessage(welcome)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	h.dropClientLocked(client)
	h.updateStats()

	logger.WithFields(map[string]interface{}{
		"user_id":       client.UserID,
		"total_clients": len(h.clients),
	}).Info("Client unregistered")
}

// dropClientLocked removes a client from every index. Caller holds mu.
func (h *Hub) dropClientLocked(client *Client) {
	delete(h.clients, client)
	if h.userClients[client.UserID] == client {
		delete(h.userClients, client.UserID)
	}
	if chatID := client.GetChatID(); chatID != "" {
		h.removeClientFromChatLocked(client, chatID)
	}
	client.close()
}

// SubscribeToChat attaches a client to a chat's live stream.
func (h *Hub) SubscribeToChat(client *Client, chatID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev := client.GetChatID(); prev != "" {
		h.removeClientFromChatLocked(client, prev)
	}

	if h.chatClients[chatID] == nil {
		h.chatClients[chatID] = make(map[*Client]bool)
	}
	h.chatClients[chatID][client] = true
	client.SetChatID(chatID)

	h.updateStats()

	logger.LogChatEvent("chat_stream_opened", chatID, client.UserID, nil)
}

// UnsubscribeFromChat detaches a client from its current chat stream.
func (h *Hub) UnsubscribeFromChat(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if chatID := client.GetChatID(); chatID != "" {
		h.removeClientFromChatLocked(client, chatID)
		h.updateStats()
	}
}

func (h *Hub) removeClientFromChatLocked(client *Client, chatID string) {
	if subscribers, exists := h.chatClients[chatID]; exists {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.chatClients, chatID)
		}
	}
	client.SetChatID("")
}

func (h *Hub) broadcastToChat(chatMsg *ChatMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subscribers, exists := h.chatClients[chatMsg.ChatID]
	if !exists {
		return
	}

	data, err := chatMsg.Message.ToJSON()
	if err != nil {
		logger.WithError(err).Error("Failed to marshal chat push")
		return
	}

	for client := range subscribers {
		if chatMsg.Exclude != "" && client.UserID == chatMsg.Exclude {
			continue
		}
		select {
		case client.Send <- data:
		default:
			// Send buffer full, drop the connection.
			go func(c *Client) { h.Unregister <- c }(client)
		}
	}
}

func (h *Hub) broadcastToUser(userMsg *UserMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.userClients[userMsg.UserID]
	if !exists {
		return
	}

	client.SendMessage(userMsg.Message)
}

// PushToChat sends a frame to a chat's subscribers.
func (h *Hub) PushToChat(chatID, excludeUserID string, message *WSMessage) {
	h.ChatBroadcast <- &ChatMessage{
		ChatID:  chatID,
		Message: message,
		Exclude: excludeUserID,
	}
}

// PushToUser sends a frame to one user's connection, if any.
func (h *Hub) PushToUser(userID string, message *WSMessage) {
	h.UserBroadcast <- &UserMessage{
		UserID:  userID,
		Message: message,
	}
}

// BroadcastTyping relays a typing indicator to the chat partner.
func (h *Hub) BroadcastTyping(chatID, userID string, isTyping bool) {
	msgType := MessageTypeStopTyping
	if isTyping {
		msgType = MessageTypeTyping
	}

	message := NewWSMessage(msgType, "", map[string]interface{}{
		"user_id": userID,
	})
	message.SetChatID(chatID)

	h.PushToChat(chatID, userID, message)
}

// IsUserOnline checks if a user holds an open socket.
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.userClients[userID]
	return exists
}

// OnlineUsers returns the user IDs with open sockets.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}

	return users
}

func (h *Hub) updateStats() {
	h.stats.mu.Lock()
	defer h.stats.mu.Unlock()

	h.stats.TotalClients = len(h.clients)
	h.stats.OnlineUsers = len(h.userClients)
	h.stats.OpenChats = len(h.chatClients)
	h.stats.LastUpdated = time.Now()
}

// GetStats returns a copy of the current hub statistics.
func (h *Hub) GetStats() *HubStats {
	h.stats.mu.RLock()
	defer h.stats.mu.RUnlock()

	return &HubStats{
		TotalClients: h.stats.TotalClients,
		OnlineUsers:  h.stats.OnlineUsers,
		OpenChats:    h.stats.OpenChats,
		LastUpdated:  h.stats.LastUpdated,
	}
}

func (h *Hub) startPeriodicTasks() {
	cleanupTimer := time.NewTicker(5 * time.Minute)

	for range cleanupTimer.C {
		h.cleanupInactiveConnections()
	}
}

func (h *Hub) cleanupInactiveConnections() {
	h.mu.RLock()
	inactive := make([]*Client, 0)
	for client := range h.clients {
		if time.Since(client.LastPongAt()) > pongWait {
			inactive = append(inactive, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range inactive {
		logger.WithField("user_id", client.UserID).Info("Removing inactive client")
		h.Unregister <- client
	}
}
