package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"minitalk/internal/models"
	"minitalk/internal/session"
	"minitalk/pkg/database"
	"minitalk/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageService struct {
	db            *mongo.Database
	messages      *mongo.Collection
	chatsColl     *mongo.Collection
	chats         *ChatService
	users         *UserService
	stats         *StatsService
	previewMaxLen int
}

func NewMessageService(db *mongo.Database, chats *ChatService, users *UserService, stats *StatsService, previewMaxLen int) *MessageService {
	if previewMaxLen <= 0 {
		previewMaxLen = 100
	}
	return &MessageService{
		db:            db,
		messages:      db.Collection(database.CollMessages),
		chatsColl:     db.Collection(database.CollChats),
		chats:         chats,
		users:         users,
		stats:         stats,
		previewMaxLen: previewMaxLen,
	}
}

// TruncatePreview caps the denormalized last-message copy. Rune-safe,
// so a multibyte character never gets split.
func TruncatePreview(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen])
}

// ValidateOutgoing applies the send-time checks: system messages carry
// a pre-built payload and bypass the emptiness check, everything else
// must be non-blank and target a live chat.
func ValidateOutgoing(chat *models.Chat, text, msgType string) error {
	if msgType != models.MessageTypeSystem && strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if chat == nil {
		return ErrChatNotFound
	}
	if !chat.IsActive || chat.Status == models.ChatStatusEnded {
		return ErrChatEnded
	}
	// A resolved support chat stays messageable; the new message
	// reopens the conversation.
	if chat.Status == models.ChatStatusResolved && chat.Type != models.ChatTypeSupport {
		return ErrChatEnded
	}
	return nil
}

// SupportUnreadFlags returns the per-role inbox flags a new message
// sets on a support chat; nil for every other chat type.
func SupportUnreadFlags(chat *models.Chat, senderID string) bson.M {
	if chat.Type != models.ChatTypeSupport {
		return nil
	}
	if senderID == models.SupportID {
		return bson.M{"unread_by_user": true}
	}
	return bson.M{"unread_by_support": true}
}

// SendChatMessage appends a message and refreshes the parent chat's
// denormalized preview. The two writes are separate operations, so a
// crash in between can leave the preview stale; the list view's
// periodic refresh repairs it. Failures surface as a user-facing error
// wrapping the cause.
func (s *MessageService) SendChatMessage(ctx context.Context, sc *session.Context, chatID primitive.ObjectID, senderID, text string, clientTime *time.Time, msgType string) (primitive.ObjectID, error) {
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	chat, err := s.chats.GetChatByID(ctx, chatID)
	if err != nil {
		return primitive.NilObjectID, err
	}

	if err := ValidateOutgoing(chat, text, msgType); err != nil {
		return primitive.NilObjectID, err
	}

	senderName := s.resolveSenderName(ctx, sc, senderID)

	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	message := &models.Message{
		ChatID:     chatID,
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		Type:       msgType,
		Timestamp:  time.Now(),
		ClientTime: clientTime,
	}

	result, err := s.messages.InsertOne(opCtx, message)
	if err != nil {
		logger.LogError(err, "Failed to store message", map[string]interface{}{
			"chat_id":   chatID.Hex(),
			"sender_id": senderID,
		})
		return primitive.NilObjectID, fmt.Errorf("could not send message, please try again: %w", err)
	}

	messageID := result.InsertedID.(primitive.ObjectID)

	if err := s.updateChatPreview(opCtx, chat, senderID, text, message.Timestamp); err != nil {
		logger.LogError(err, "Failed to update chat preview", map[string]interface{}{
			"chat_id": chatID.Hex(),
		})
		return primitive.NilObjectID, fmt.Errorf("could not send message, please try again: %w", err)
	}

	s.stats.RecordMessageSent(ctx, senderID)

	return messageID, nil
}

func (s *MessageService) resolveSenderName(ctx context.Context, sc *session.Context, senderID string) string {
	switch senderID {
	case models.SupportID:
		return "Support"
	case models.SystemSenderID:
		return "System"
	}

	if user, err := s.users.GetUserByID(ctx, senderID); err == nil {
		// Opportunistic backfill for records created as placeholders.
		if sc != nil && sc.UserID == senderID {
			s.users.BackfillIdentity(ctx, senderID, *sc)
		}
		if user.Name != "" {
			return user.Name
		}
	}

	if sc != nil && sc.UserID == senderID && sc.Name != "" {
		return sc.Name
	}

	return "Anonymous"
}

func (s *MessageService) updateChatPreview(ctx context.Context, chat *models.Chat, senderID, text string, sentAt time.Time) error {
	set := bson.M{
		"last_message":           TruncatePreview(text, s.previewMaxLen),
		"last_message_time":      sentAt,
		"last_message_sender_id": senderID,
		"updated_at":             sentAt,
	}
	for flag, value := range SupportUnreadFlags(chat, senderID) {
		set[flag] = value
	}

	inc := bson.M{"messages_count": 1}
	for _, participant := range chat.Participants {
		if participant != senderID && participant != models.SupportID {
			inc["participant_meta."+participant+".unread"] = 1
		}
	}

	update := bson.M{
		"$set": set,
		"$inc": inc,
	}
	// Messaging a resolved support chat reopens it.
	if chat.Type == models.ChatTypeSupport && chat.Status == models.ChatStatusResolved {
		update["$unset"] = bson.M{"status": ""}
	}

	_, err := s.chatsColl.UpdateOne(ctx, bson.M{"_id": chat.ID}, update)
	return err
}

// GetChatMessages returns the chat's messages in chronological order,
// capped at limit. Live updates for the open chat come from the
// websocket stream, not from re-polling this.
func (s *MessageService) GetChatMessages(ctx context.Context, chatID primitive.ObjectID, limit int64) ([]models.Message, error) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(limit)

	cursor, err := s.messages.Find(opCtx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer cursor.Close(opCtx)

	var messages []models.Message
	if err = cursor.All(opCtx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	return messages, nil
}

// MarkMessagesAsRead marks everything the reader has not sent as read
// and zeroes the reader's unread counter on the chat document. For
// support chats the matching per-role inbox flag clears too.
func (s *MessageService) MarkMessagesAsRead(ctx context.Context, chatID primitive.ObjectID, userID string) error {
	chat, err := s.chats.GetChatByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return ErrNotParticipant
	}

	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = s.messages.UpdateMany(opCtx, bson.M{
		"chat_id":   chatID,
		"sender_id": bson.M{"$ne": userID},
		"read":      false,
	}, bson.M{
		"$set": bson.M{"read": true},
	})
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}

	set := bson.M{
		"participant_meta." + userID + ".unread": 0,
	}
	if chat.Type == models.ChatTypeSupport {
		if userID == models.SupportID {
			set["unread_by_support"] = false
		} else {
			set["unread_by_user"] = false
		}
	}

	_, err = s.chatsColl.UpdateOne(opCtx, bson.M{"_id": chatID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to clear unread counter: %w", err)
	}

	return nil
}

// UnreadCount returns how many messages in the chat the user has not
// read yet, from the authoritative message documents.
func (s *MessageService) UnreadCount(ctx context.Context, chatID primitive.ObjectID, userID string) (int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := s.messages.CountDocuments(opCtx, bson.M{
		"chat_id":   chatID,
		"sender_id": bson.M{"$ne": userID},
		"read":      false,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}

	return count, nil
}
