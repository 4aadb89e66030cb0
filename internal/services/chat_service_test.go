package services

import (
	"testing"
	"time"

	"minitalk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEndChatUpdate(t *testing.T) {
	now := time.Now()

	t.Run("already ended chat is a no-op", func(t *testing.T) {
		chat := &models.Chat{
			Participants: []string{"a", "b"},
			IsActive:     false,
			Status:       models.ChatStatusEnded,
		}

		update, err := EndChatUpdate(chat, "a", now)
		require.NoError(t, err)
		assert.Nil(t, update)
	})

	t.Run("non-participant is rejected", func(t *testing.T) {
		chat := &models.Chat{
			Participants: []string{"a", "b"},
			IsActive:     true,
			CreatedAt:    now.Add(-10 * time.Minute),
		}

		_, err := EndChatUpdate(chat, "stranger", now)
		assert.ErrorIs(t, err, ErrNotParticipant)
	})

	t.Run("duration is whole minutes since creation", func(t *testing.T) {
		chat := &models.Chat{
			Participants: []string{"a", "b"},
			IsActive:     true,
			CreatedAt:    now.Add(-7*time.Minute - 40*time.Second),
		}

		update, err := EndChatUpdate(chat, "b", now)
		require.NoError(t, err)

		set := update["$set"].(bson.M)
		assert.Equal(t, int64(7), set["duration"])
		assert.Equal(t, false, set["is_active"])
		assert.Equal(t, models.ChatStatusEnded, set["status"])
		assert.Equal(t, "b", set["ended_by"])
	})

	t.Run("clock skew never yields negative duration", func(t *testing.T) {
		chat := &models.Chat{
			Participants: []string{"a", "b"},
			IsActive:     true,
			CreatedAt:    now.Add(2 * time.Minute),
		}

		update, err := EndChatUpdate(chat, "a", now)
		require.NoError(t, err)

		set := update["$set"].(bson.M)
		assert.Equal(t, int64(0), set["duration"])
	})

	t.Run("empty user skips the participant check", func(t *testing.T) {
		chat := &models.Chat{
			Participants: []string{"a", "b"},
			IsActive:     true,
			CreatedAt:    now.Add(-time.Minute),
		}

		update, err := EndChatUpdate(chat, "", now)
		require.NoError(t, err)

		set := update["$set"].(bson.M)
		_, hasEndedBy := set["ended_by"]
		assert.False(t, hasEndedBy)
	})
}

func TestSortChatSummaries(t *testing.T) {
	now := time.Now()

	summaries := []models.ChatSummary{
		{Chat: models.Chat{Pinned: false}, PartnerID: "old", LastActivity: now.Add(-2 * time.Hour)},
		{Chat: models.Chat{Pinned: false}, PartnerID: "new", LastActivity: now},
		{Chat: models.Chat{Pinned: true}, PartnerID: "support", LastActivity: now.Add(-24 * time.Hour)},
		{Chat: models.Chat{Pinned: false}, PartnerID: "mid", LastActivity: now.Add(-time.Hour)},
	}

	SortChatSummaries(summaries)

	order := make([]string, len(summaries))
	for i, s := range summaries {
		order[i] = s.PartnerID
	}
	// Pinned first regardless of age, then newest activity first.
	assert.Equal(t, []string{"support", "new", "mid", "old"}, order)
}

func TestBuildParticipantMeta(t *testing.T) {
	meta := BuildParticipantMeta(
		&models.User{ID: "a", Name: "Alice", Platform: models.PlatformTelegramMobile},
		nil,
		&models.User{ID: "b", Name: "Bob", Platform: models.PlatformWeb},
	)

	require.Len(t, meta, 2)
	assert.Equal(t, "Alice", meta["a"].Name)
	assert.Equal(t, models.PlatformTelegramMobile, meta["a"].Platform)
	assert.Equal(t, "Bob", meta["b"].Name)
	assert.Zero(t, meta["a"].Unread)
}
