package services

import (
	"strings"
	"testing"

	"minitalk/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTruncatePreview(t *testing.T) {
	assert.Equal(t, "hello", TruncatePreview("hello", 100))
	assert.Equal(t, "he", TruncatePreview("hello", 2))
	assert.Equal(t, "", TruncatePreview("", 100))

	// Multibyte characters survive the cut intact.
	long := strings.Repeat("п", 150)
	got := TruncatePreview(long, 100)
	assert.Equal(t, 100, len([]rune(got)))
	assert.Equal(t, strings.Repeat("п", 100), got)
}

func TestValidateOutgoing(t *testing.T) {
	active := &models.Chat{
		Participants: []string{"a", "b"},
		IsActive:     true,
	}
	ended := &models.Chat{
		Participants: []string{"a", "b"},
		IsActive:     false,
		Status:       models.ChatStatusEnded,
	}

	t.Run("blank text is rejected", func(t *testing.T) {
		assert.ErrorIs(t, ValidateOutgoing(active, "", models.MessageTypeText), ErrEmptyMessage)
		assert.ErrorIs(t, ValidateOutgoing(active, "   \n\t", models.MessageTypeText), ErrEmptyMessage)
	})

	t.Run("system messages bypass the emptiness check", func(t *testing.T) {
		assert.NoError(t, ValidateOutgoing(active, "", models.MessageTypeSystem))
	})

	t.Run("missing chat", func(t *testing.T) {
		assert.ErrorIs(t, ValidateOutgoing(nil, "hi", models.MessageTypeText), ErrChatNotFound)
	})

	t.Run("ended chat refuses new messages", func(t *testing.T) {
		assert.ErrorIs(t, ValidateOutgoing(ended, "hi", models.MessageTypeText), ErrChatEnded)
	})

	t.Run("resolved support chat stays messageable", func(t *testing.T) {
		resolved := &models.Chat{
			Participants: []string{"a", models.SupportID},
			Type:         models.ChatTypeSupport,
			IsActive:     true,
			Status:       models.ChatStatusResolved,
		}
		assert.NoError(t, ValidateOutgoing(resolved, "hi again", models.MessageTypeText))
	})

	t.Run("resolved non-support chat refuses new messages", func(t *testing.T) {
		resolved := &models.Chat{
			Participants: []string{"a", "b"},
			IsActive:     true,
			Status:       models.ChatStatusResolved,
		}
		assert.ErrorIs(t, ValidateOutgoing(resolved, "hi", models.MessageTypeText), ErrChatEnded)
	})

	t.Run("inactive support chat refuses new messages", func(t *testing.T) {
		closed := &models.Chat{
			Participants: []string{"a", models.SupportID},
			Type:         models.ChatTypeSupport,
			IsActive:     false,
			Status:       models.ChatStatusResolved,
		}
		assert.ErrorIs(t, ValidateOutgoing(closed, "hi", models.MessageTypeText), ErrChatEnded)
	})

	t.Run("valid send", func(t *testing.T) {
		assert.NoError(t, ValidateOutgoing(active, "hi", models.MessageTypeText))
	})
}

func TestSupportUnreadFlags(t *testing.T) {
	random := &models.Chat{Type: models.ChatTypeRandom}
	support := &models.Chat{
		Type:         models.ChatTypeSupport,
		Participants: []string{"user-1", models.SupportID},
	}

	assert.Nil(t, SupportUnreadFlags(random, "user-1"))

	userSent := SupportUnreadFlags(support, "user-1")
	assert.Equal(t, true, userSent["unread_by_support"])
	assert.NotContains(t, userSent, "unread_by_user")

	supportSent := SupportUnreadFlags(support, models.SupportID)
	assert.Equal(t, true, supportSent["unread_by_user"])
	assert.NotContains(t, supportSent, "unread_by_support")
}
