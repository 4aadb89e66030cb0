package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSMessageValidate(t *testing.T) {
	t.Run("missing type", func(t *testing.T) {
		assert.Error(t, (&WSMessage{}).Validate())
	})

	t.Run("chat-scoped frames need a chat id", func(t *testing.T) {
		for _, msgType := range []MessageType{MessageTypeJoinChat, MessageTypeLeaveChat, MessageTypeTyping, MessageTypeStopTyping} {
			assert.Error(t, (&WSMessage{Type: msgType}).Validate(), string(msgType))
			assert.NoError(t, (&WSMessage{Type: msgType, ChatID: "abc"}).Validate(), string(msgType))
		}
	})

	t.Run("heartbeat needs nothing", func(t *testing.T) {
		assert.NoError(t, (&WSMessage{Type: MessageTypeHeartbeat}).Validate())
	})
}

func TestWSMessageIsClientType(t *testing.T) {
	assert.True(t, (&WSMessage{Type: MessageTypeTyping}).IsClientType())
	assert.True(t, (&WSMessage{Type: MessageTypeHeartbeat}).IsClientType())
	assert.False(t, (&WSMessage{Type: MessageTypeMatchFound}).IsClientType())
	assert.False(t, (&WSMessage{Type: MessageTypeNewMessage}).IsClientType())
	assert.False(t, (&WSMessage{Type: "bogus"}).IsClientType())
}

func TestWSMessageRoundTrip(t *testing.T) {
	msg := NewWSMessage(MessageTypeMatchFound, "", map[string]interface{}{
		"chat_id": "abc123",
	})
	msg.SetFrom("u1")
	msg.SetChatID("abc123")
	msg.AddData("partner_id", "u2")

	data, err := msg.ToJSON()
	require.NoError(t, err)

	var decoded WSMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, MessageTypeMatchFound, decoded.Type)
	assert.Equal(t, "u1", decoded.From)
	assert.Equal(t, "u2", decoded.Data["partner_id"])
	assert.NotEmpty(t, decoded.ID)
}
