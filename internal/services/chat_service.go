package services

import (
	"context"
	"fmt"
	"sort"
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

type ChatService struct {
	db         *mongo.Database
	collection *mongo.Collection
	users      *UserService
	stats      *StatsService
}

func NewChatService(db *mongo.Database, users *UserService, stats *StatsService) *ChatService {
	return &ChatService{
		db:         db,
		collection: db.Collection(database.CollChats),
		users:      users,
		stats:      stats,
	}
}

// BuildParticipantMeta denormalizes the display fields of both sides
// onto the chat document.
func BuildParticipantMeta(users ...*models.User) map[string]models.ParticipantMeta {
	meta := make(map[string]models.ParticipantMeta, len(users))
	for _, u := range users {
		if u == nil {
			continue
		}
		meta[u.ID] = models.ParticipantMeta{
			Name:     u.Name,
			Platform: u.Platform,
		}
	}
	return meta
}

// EndChatUpdate decides what ending a chat should write. A nil update
// with nil error means the chat already ended and the call is a no-op.
// When userID is empty the participant check is skipped (admin paths).
func EndChatUpdate(chat *models.Chat, userID string, now time.Time) (bson.M, error) {
	if chat.Ended() {
		return nil, nil
	}

	if userID != "" && !chat.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	duration := int64(now.Sub(chat.CreatedAt).Minutes())
	if duration < 0 {
		duration = 0
	}

	set := bson.M{
		"is_active":  false,
		"status":     models.ChatStatusEnded,
		"ended_at":   now,
		"duration":   duration,
		"updated_at": now,
	}
	if userID != "" {
		set["ended_by"] = userID
	}

	return bson.M{"$set": set}, nil
}

// SortChatSummaries orders a chat list for rendering: pinned chats
// first, then descending by last activity within each group.
func SortChatSummaries(items []models.ChatSummary) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Chat.Pinned != items[j].Chat.Pinned {
			return items[i].Chat.Pinned
		}
		return items[i].LastActivity.After(items[j].LastActivity)
	})
}

// CreateChat creates a direct (friend) chat, lazily materializing
// missing user records. The session context, when it belongs to one of
// the participants, enriches that participant's record.
func (s *ChatService) CreateChat(ctx context.Context, sc *session.Context, user1ID, user2ID string) (*models.Chat, error) {
	if user1ID == "" || user2ID == "" || user1ID == user2ID {
		return nil, fmt.Errorf("invalid participant pair")
	}

	user1, err := s.users.EnsureUser(ctx, user1ID, sc)
	if err != nil {
		return nil, err
	}
	user2, err := s.users.EnsureUser(ctx, user2ID, sc)
	if err != nil {
		return nil, err
	}

	chat, err := s.insertChat(ctx, []string{user1ID, user2ID}, BuildParticipantMeta(user1, user2), "", false, "")
	if err != nil {
		return nil, err
	}

	s.stats.RecordChatStarted(ctx, user1ID, user2ID)

	logger.LogChatEvent("chat_created", chat.ID.Hex(), user1ID, map[string]interface{}{
		"partner_id": user2ID,
	})

	return chat, nil
}

// insertChat writes a fresh chat document. firstMessage seeds the
// denormalized preview; an empty string leaves the preview blank.
func (s *ChatService) insertChat(ctx context.Context, participants []string, meta map[string]models.ParticipantMeta, chatType string, pinned bool, firstMessage string) (*models.Chat, error) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	chat := &models.Chat{
		Participants: participants,
		Meta:         meta,
		Type:         chatType,
		IsActive:     true,
		Pinned:       pinned,
		LastMessage:  firstMessage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if firstMessage != "" {
		chat.LastMessageTime = now
		chat.LastMessageSenderID = models.SystemSenderID
	}

	result, err := s.collection.InsertOne(opCtx, chat)
	if err != nil {
		logger.LogError(err, "Failed to create chat", map[string]interface{}{
			"participants": participants,
			"type":         chatType,
		})
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	chat.ID = result.InsertedID.(primitive.ObjectID)
	return chat, nil
}

func (s *ChatService) GetChatByID(ctx context.Context, chatID primitive.ObjectID) (*models.Chat, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var chat models.Chat
	err := s.collection.FindOne(opCtx, bson.M{"_id": chatID}).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	return &chat, nil
}

// GetUserChats returns every chat the user participates in that is
// either active or a support chat (support entries stay listed after
// resolution so the pinned entry point persists). Results carry
// resolved partner info and are sorted pinned-first, then most recent.
func (s *ChatService) GetUserChats(ctx context.Context, userID string) ([]models.ChatSummary, error) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"participants": userID,
		"$or": []bson.M{
			{"is_active": true},
			{"type": models.ChatTypeSupport},
		},
	}

	cursor, err := s.collection.Find(opCtx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get user chats: %w", err)
	}
	defer cursor.Close(opCtx)

	var chats []models.Chat
	if err = cursor.All(opCtx, &chats); err != nil {
		return nil, fmt.Errorf("failed to decode chats: %w", err)
	}

	summaries := make([]models.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summaries = append(summaries, s.summarize(ctx, chat, userID))
	}

	SortChatSummaries(summaries)
	return summaries, nil
}

// summarize resolves partner display info, preferring a fresh user
// lookup and falling back to the denormalized snapshot on the chat.
func (s *ChatService) summarize(ctx context.Context, chat models.Chat, userID string) models.ChatSummary {
	partnerID := chat.PartnerOf(userID)

	summary := models.ChatSummary{
		Chat:         chat,
		PartnerID:    partnerID,
		LastActivity: chat.LastActivity(),
	}

	if meta, ok := chat.Meta[userID]; ok {
		summary.Unread = meta.Unread
	}

	if partnerID == models.SupportID {
		summary.PartnerName = "Support"
		return summary
	}

	if partner, err := s.users.GetUserByID(ctx, partnerID); err == nil {
		summary.PartnerName = partner.Name
		summary.PartnerPlatform = partner.Platform
	} else if meta, ok := chat.Meta[partnerID]; ok {
		summary.PartnerName = meta.Name
		summary.PartnerPlatform = meta.Platform
	}

	return summary
}

// ActiveChatBetween reports whether an active non-support chat already
// connects the two users; the matching scan uses it to skip candidates.
func (s *ChatService) ActiveChatBetween(ctx context.Context, user1ID, user2ID string) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := s.collection.CountDocuments(opCtx, bson.M{
		"is_active":    true,
		"participants": bson.M{"$all": []string{user1ID, user2ID}},
		"type":         bson.M{"$ne": models.ChatTypeSupport},
	})
	if err != nil {
		return false, fmt.Errorf("failed to check existing chat: %w", err)
	}

	return count > 0, nil
}

// EndChat flips a chat to ended inside a transaction, so a double end
// (both sides pressing "leave" at once) mutates the document exactly
// once. Ending an already-ended chat succeeds without writing.
func (s *ChatService) EndChat(ctx context.Context, chatID primitive.ObjectID, userID string) error {
	type endResult struct {
		chat  models.Chat
		ended bool
	}

	result, err := database.WithTransaction(func(sessCtx mongo.SessionContext) (interface{}, error) {
		var chat models.Chat
		err := s.collection.FindOne(sessCtx, bson.M{"_id": chatID}).Decode(&chat)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, ErrChatNotFound
			}
			return nil, fmt.Errorf("failed to read chat: %w", err)
		}

		update, err := EndChatUpdate(&chat, userID, time.Now())
		if err != nil {
			return nil, err
		}
		if update == nil {
			// Already ended.
			return &endResult{chat: chat}, nil
		}

		if _, err := s.collection.UpdateOne(sessCtx, bson.M{"_id": chatID}, update); err != nil {
			return nil, fmt.Errorf("failed to end chat: %w", err)
		}

		return &endResult{chat: chat, ended: true}, nil
	})
	if err != nil {
		return err
	}

	res := result.(*endResult)
	if res.ended {
		duration := int64(time.Since(res.chat.CreatedAt).Minutes())
		s.stats.RecordChatEnded(ctx, res.chat.Participants, duration, res.chat.MessagesCount)

		logger.LogChatEvent("chat_ended", chatID.Hex(), userID, map[string]interface{}{
			"duration_mins": duration,
		})
	}

	return nil
}

// UpdateChatStatus is the plain status setter used by report/admin
// resolution flows; is_active is derived from the status.
func (s *ChatService) UpdateChatStatus(ctx context.Context, chatID primitive.ObjectID, status string) error {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := s.collection.UpdateOne(opCtx, bson.M{"_id": chatID}, bson.M{
		"$set": bson.M{
			"status":     status,
			"is_active":  status != models.ChatStatusEnded,
			"updated_at": time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update chat status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrChatNotFound
	}

	return nil
}

// ListChats returns a filtered page of chats for the admin console.
func (s *ChatService) ListChats(ctx context.Context, filter bson.M, page, limit int64) ([]models.Chat, int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	total, err := s.collection.CountDocuments(opCtx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count chats: %w", err)
	}

	opts := options.Find().
		SetLimit(limit).
		SetSkip((page - 1) * limit).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.collection.Find(opCtx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get chats: %w", err)
	}
	defer cursor.Close(opCtx)

	var chats []models.Chat
	if err = cursor.All(opCtx, &chats); err != nil {
		return nil, 0, fmt.Errorf("failed to decode chats: %w", err)
	}

	return chats, total, nil
}
