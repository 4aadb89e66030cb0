package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"minitalk/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer; control frames only, so small
	maxMessageSize = 4096

	// Buffer size for client send channel
	sendBufferSize = 256

	// Control frames per minute before the socket is throttled
	frameRateLimit = 120
)

var newline = []byte{'\n'}

// Client represents one user's WebSocket connection.
type Client struct {
	Conn *websocket.Conn
	Hub  *Hub
	Send chan []byte

	UserID   string
	Platform string

	ConnectedAt time.Time

	// chatID is the chat whose live stream this socket follows
	chatID string

	lastPong time.Time

	frameCount int
	frameReset time.Time

	// closed marks a dropped or superseded connection; guards Send.
	closed bool

	mu sync.RWMutex
}

// NewClient creates a new WebSocket client.
func NewClient(conn *websocket.Conn, hub *Hub, userID, platform string) *Client {
	return &Client{
		Conn:        conn,
		Hub:         hub,
		Send:        make(chan []byte, sendBufferSize),
		UserID:      userID,
		Platform:    platform,
		ConnectedAt: time.Now(),
		lastPong:    time.Now(),
	}
}

// ReadPump pumps frames from the WebSocket connection to the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
		c.logDisconnection()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touchPong()
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.logConnection()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithFields(map[string]interface{}{
					"user_id": c.UserID,
					"error":   err.Error(),
				}).Error("WebSocket read error")
			}
			break
		}

		if !c.checkRateLimit() {
			c.sendError("Rate limit exceeded")
			continue
		}

		msg, err := c.parseMessage(raw)
		if err != nil {
			c.sendError(fmt.Sprintf("Invalid message format: %v", err))
			continue
		}

		msg.SetFrom(c.UserID)

		if err := msg.Validate(); err != nil {
			c.sendError(err.Error())
			continue
		}
		if !msg.IsClientType() {
			c.sendError(fmt.Sprintf("Unknown message type: %s", msg.Type))
			continue
		}

		c.handleMessage(msg)
	}
}

// WritePump pumps frames from the hub to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued frames into the same write
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) parseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	return &msg, nil
}

func (c *Client) handleMessage(msg *WSMessage) {
	switch msg.Type {
	case MessageTypeJoinChat:
		c.Hub.SubscribeToChat(c, msg.ChatID)

	case MessageTypeLeaveChat:
		c.Hub.UnsubscribeFromChat(c)

	case MessageTypeTyping, MessageTypeStopTyping:
		if c.GetChatID() != msg.ChatID {
			return
		}
		c.Hub.BroadcastTyping(msg.ChatID, c.UserID, msg.Type == MessageTypeTyping)

	case MessageTypeHeartbeat:
		response := NewWSMessage(MessageTypeHeartbeat, "", map[string]interface{}{
			"server_time": time.Now(),
			"uptime":      time.Since(c.ConnectedAt).Seconds(),
		})
		c.SendMessage(response)
	}
}

func (c *Client) checkRateLimit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.frameReset) > time.Minute {
		c.frameCount = 0
		c.frameReset = now
	}

	c.frameCount++
	return c.frameCount <= frameRateLimit
}

// SendMessage sends a frame to the client. A superseded or dropped
// connection rejects the frame; its read pump may still be running
// when the hub releases the send channel.
func (c *Client) SendMessage(msg *WSMessage) error {
	data, err := msg.ToJSON()
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("connection closed")
	}

	select {
	case c.Send <- data:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// close releases the send channel and the peer connection, which makes
// both pumps exit. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.Send)
	if c.Conn != nil {
		c.Conn.Close()
	}
}

func (c *Client) sendError(message string) {
	c.SendMessage(NewWSMessage(MessageTypeError, message, nil))
}

// SetChatID records which chat stream this socket follows.
func (c *Client) SetChatID(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatID = chatID
}

// GetChatID returns the chat stream this socket follows, if any.
func (c *Client) GetChatID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chatID
}

func (c *Client) touchPong() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPong = time.Now()
}

// LastPongAt returns when the peer last answered a ping.
func (c *Client) LastPongAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPong
}

func (c *Client) logConnection() {
	logger.LogUserAction(c.UserID, "websocket_connected", map[string]interface{}{
		"platform": c.Platform,
	})
}

func (c *Client) logDisconnection() {
	logger.LogUserAction(c.UserID, "websocket_disconnected", map[string]interface{}{
		"duration_seconds": time.Since(c.ConnectedAt).Seconds(),
		"chat_id":          c.GetChatID(),
	})
}
