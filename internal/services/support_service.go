package services

import (
	"context"
	"fmt"
	"time"

	"minitalk/internal/models"
	"minitalk/internal/session"
	"minitalk/pkg/database"
	"minitalk/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type SupportService struct {
	collection *mongo.Collection
	chats      *ChatService
	messages   *MessageService
	users      *UserService
	stats      *StatsService
}

func NewSupportService(db *mongo.Database, chats *ChatService, messages *MessageService, users *UserService, stats *StatsService) *SupportService {
	return &SupportService{
		collection: db.Collection(database.CollChats),
		chats:      chats,
		messages:   messages,
		users:      users,
		stats:      stats,
	}
}

// PickSupportChat chooses which support chat to reuse when the scan
// finds more than one (a historical race could create duplicates).
// The most recently active one wins; ties break toward the earlier
// element so the choice is deterministic.
func PickSupportChat(chats []models.Chat) *models.Chat {
	if len(chats) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(chats); i++ {
		if chats[i].LastActivity().After(chats[best].LastActivity()) {
			best = i
		}
	}
	return &chats[best]
}

// EnsureSupportChat returns the user's support chat, creating it on
// first contact. The chat is pinned and stays active; a personalized
// welcome message is seeded exactly once, at creation.
func (s *SupportService) EnsureSupportChat(ctx context.Context, sc *session.Context, userID string) (*models.Chat, error) {
	if existing, err := s.findSupportChat(ctx, userID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	user, err := s.users.EnsureUser(ctx, userID, sc)
	if err != nil {
		return nil, err
	}

	meta := BuildParticipantMeta(user)
	meta[models.SupportID] = models.ParticipantMeta{Name: "Support"}

	chat, err := s.chats.insertChat(ctx, []string{userID, models.SupportID}, meta, models.ChatTypeSupport, true, "")
	if err != nil {
		return nil, err
	}

	welcome := welcomeText(user.Name)
	if _, err := s.messages.SendChatMessage(ctx, nil, chat.ID, models.SupportID, welcome, nil, models.MessageTypeText); err != nil {
		// The chat is usable without the greeting.
		logger.LogError(err, "Failed to seed support welcome message", map[string]interface{}{
			"chat_id": chat.ID.Hex(),
			"user_id": userID,
		})
	}

	s.stats.RecordSupportChatCreated(ctx)

	logger.LogChatEvent("support_chat_created", chat.ID.Hex(), userID, nil)

	return chat, nil
}

// GetSupportChatID is the scan-only variant: it never creates a chat.
// Returns NilObjectID when the user has no support chat yet.
func (s *SupportService) GetSupportChatID(ctx context.Context, userID string) (primitive.ObjectID, error) {
	chat, err := s.findSupportChat(ctx, userID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if chat == nil {
		return primitive.NilObjectID, nil
	}
	return chat.ID, nil
}

// SendSupportMessage delivers a message into the user's support chat,
// creating the chat first if this is the user's first contact.
func (s *SupportService) SendSupportMessage(ctx context.Context, sc *session.Context, userID, senderID, text string, clientTime *time.Time) (primitive.ObjectID, error) {
	chat, err := s.EnsureSupportChat(ctx, sc, userID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return s.messages.SendChatMessage(ctx, sc, chat.ID, senderID, text, clientTime, models.MessageTypeText)
}

// ListUnresolved returns support chats with pending user messages,
// oldest activity first, for the admin inbox.
func (s *SupportService) ListUnresolved(ctx context.Context) ([]models.Chat, error) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := s.collection.Find(opCtx, bson.M{
		"type":              models.ChatTypeSupport,
		"unread_by_support": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list support inbox: %w", err)
	}
	defer cursor.Close(opCtx)

	var chats []models.Chat
	if err = cursor.All(opCtx, &chats); err != nil {
		return nil, fmt.Errorf("failed to decode support inbox: %w", err)
	}

	return chats, nil
}

func (s *SupportService) findSupportChat(ctx context.Context, userID string) (*models.Chat, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := s.collection.Find(opCtx, bson.M{
		"participants": userID,
		"type":         models.ChatTypeSupport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up support chat: %w", err)
	}
	defer cursor.Close(opCtx)

	var chats []models.Chat
	if err = cursor.All(opCtx, &chats); err != nil {
		return nil, fmt.Errorf("failed to decode support chats: %w", err)
	}

	return PickSupportChat(chats), nil
}

func welcomeText(name string) string {
	if name == "" || name == "Anonymous" {
		return "Hi! This is the support channel. Describe your issue and we will get back to you."
	}
	return fmt.Sprintf("Hi %s! This is the support channel. Describe your issue and we will get back to you.", name)
}
