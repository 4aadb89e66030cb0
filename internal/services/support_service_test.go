package services

import (
	"testing"
	"time"

	"minitalk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickSupportChat(t *testing.T) {
	now := time.Now()

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, PickSupportChat(nil))
		assert.Nil(t, PickSupportChat([]models.Chat{}))
	})

	t.Run("single chat wins by default", func(t *testing.T) {
		chats := []models.Chat{{CreatedAt: now}}
		got := PickSupportChat(chats)
		require.NotNil(t, got)
		assert.Equal(t, chats[0].CreatedAt, got.CreatedAt)
	})

	t.Run("most recently active duplicate wins", func(t *testing.T) {
		chats := []models.Chat{
			{LastMessageTime: now.Add(-time.Hour), CreatedAt: now.Add(-48 * time.Hour)},
			{LastMessageTime: now.Add(-time.Minute), CreatedAt: now.Add(-72 * time.Hour)},
			{CreatedAt: now.Add(-24 * time.Hour)},
		}

		got := PickSupportChat(chats)
		require.NotNil(t, got)
		assert.Equal(t, now.Add(-time.Minute), got.LastMessageTime)
	})

	t.Run("ties break toward the earlier element", func(t *testing.T) {
		same := now.Add(-time.Hour)
		chats := []models.Chat{
			{LastMessageTime: same, CreatedAt: now.Add(-10 * time.Hour)},
			{LastMessageTime: same, CreatedAt: now.Add(-20 * time.Hour)},
		}

		got := PickSupportChat(chats)
		require.NotNil(t, got)
		assert.Equal(t, now.Add(-10*time.Hour), got.CreatedAt)
	})
}

func TestWelcomeText(t *testing.T) {
	assert.Contains(t, welcomeText("Alice"), "Hi Alice!")
	assert.NotContains(t, welcomeText(""), "!  ")
	assert.Contains(t, welcomeText(""), "Hi!")
	assert.Contains(t, welcomeText("Anonymous"), "Hi!")
}
