package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatParticipants(t *testing.T) {
	chat := &Chat{Participants: []string{"a", "b"}}

	assert.True(t, chat.HasParticipant("a"))
	assert.False(t, chat.HasParticipant("c"))
	assert.Equal(t, "b", chat.PartnerOf("a"))
	assert.Equal(t, "a", chat.PartnerOf("b"))
	assert.Equal(t, "", chat.PartnerOf("c"))
}

func TestChatEnded(t *testing.T) {
	assert.False(t, (&Chat{IsActive: true}).Ended())
	assert.True(t, (&Chat{IsActive: false}).Ended())
	assert.True(t, (&Chat{IsActive: true, Status: ChatStatusEnded}).Ended())
	assert.True(t, (&Chat{IsActive: true, Status: ChatStatusResolved}).Ended())
}

func TestChatLastActivity(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	lastMsg := created.Add(2 * time.Hour)

	assert.Equal(t, lastMsg, (&Chat{CreatedAt: created, UpdatedAt: updated, LastMessageTime: lastMsg}).LastActivity())
	assert.Equal(t, updated, (&Chat{CreatedAt: created, UpdatedAt: updated}).LastActivity())
	assert.Equal(t, created, (&Chat{CreatedAt: created}).LastActivity())
}

func TestUserStalePresence(t *testing.T) {
	now := time.Now()
	threshold := 5 * time.Minute

	assert.True(t, (&User{}).StalePresence(now, threshold))
	assert.True(t, (&User{LastActive: now.Add(-6 * time.Minute)}).StalePresence(now, threshold))
	assert.False(t, (&User{LastActive: now.Add(-time.Minute)}).StalePresence(now, threshold))
}

func TestUserIsBanned(t *testing.T) {
	assert.False(t, (&User{}).IsBanned())
	assert.True(t, (&User{Status: "banned"}).IsBanned())
	assert.True(t, (&User{Status: "suspended"}).IsBanned())
}
