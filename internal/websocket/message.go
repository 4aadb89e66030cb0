package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageType represents different types of WebSocket frames.
type MessageType string

const (
	// Client-originated types
	MessageTypeJoinChat   MessageType = "join_chat"
	MessageTypeLeaveChat  MessageType = "leave_chat"
	MessageTypeTyping     MessageType = "typing"
	MessageTypeStopTyping MessageType = "stop_typing"
	MessageTypeHeartbeat  MessageType = "heartbeat"

	// Server push types
	MessageTypeNewMessage MessageType = "message_new"
	MessageTypeMatchFound MessageType = "match_found"
	MessageTypeChatEnded  MessageType = "chat_ended"
	MessageTypeError      MessageType = "error"
	MessageTypeSuccess    MessageType = "success"
)

// WSMessage is the frame exchanged over the socket. Chat content never
// travels client-to-server here; sends go through the HTTP API and come
// back down as message_new pushes.
type WSMessage struct {
	ID        string                 `json:"id"`
	Type      MessageType            `json:"type"`
	Content   string                 `json:"content,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	From      string                 `json:"from,omitempty"`
	ChatID    string                 `json:"chat_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// MatchData is the payload of a match_found push.
type MatchData struct {
	ChatID          string `json:"chat_id"`
	PartnerID       string `json:"partner_id"`
	PartnerName     string `json:"partner_name"`
	PartnerPlatform string `json:"partner_platform,omitempty"`
}

// NewWSMessage creates a new WebSocket message.
func NewWSMessage(msgType MessageType, content string, data map[string]interface{}) *WSMessage {
	return &WSMessage{
		ID:        primitive.NewObjectID().Hex(),
		Type:      msgType,
		Content:   content,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (msg *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(msg)
}

// SetFrom sets the sender of the message.
func (msg *WSMessage) SetFrom(userID string) {
	msg.From = userID
}

// SetChatID sets the chat the message refers to.
func (msg *WSMessage) SetChatID(chatID string) {
	msg.ChatID = chatID
}

// AddData adds a data field to the message.
func (msg *WSMessage) AddData(key string, value interface{}) {
	if msg.Data == nil {
		msg.Data = make(map[string]interface{})
	}
	msg.Data[key] = value
}

// IsClientType reports whether clients are allowed to send this frame.
func (msg *WSMessage) IsClientType() bool {
	switch msg.Type {
	case MessageTypeJoinChat, MessageTypeLeaveChat, MessageTypeTyping,
		MessageTypeStopTyping, MessageTypeHeartbeat:
		return true
	}
	return false
}

// Validate validates the message structure.
func (msg *WSMessage) Validate() error {
	if msg.Type == "" {
		return fmt.Errorf("message type is required")
	}

	switch msg.Type {
	case MessageTypeJoinChat, MessageTypeLeaveChat, MessageTypeTyping, MessageTypeStopTyping:
		if msg.ChatID == "" {
			return fmt.Errorf("chat_id is required for %s", msg.Type)
		}
	}

	return nil
}
