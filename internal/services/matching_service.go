package services

import (
	"context"
	"fmt"
	"time"

	"minitalk/internal/config"
	"minitalk/internal/models"
	"minitalk/pkg/database"
	"minitalk/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// connectedMessage seeds the denormalized preview of a fresh random chat.
const connectedMessage = "You are connected. Say hello!"

// MatchNotifier receives the push side of a successful pairing: the
// passive party (the one whose ticket was claimed) learns about the
// chat through it. Implementations must be best-effort and fast.
type MatchNotifier interface {
	NotifyMatch(ctx context.Context, chat *models.Chat, passiveUserID string)
}

type MatchingService struct {
	db       *mongo.Database
	queue    *mongo.Collection
	chats    *ChatService
	users    *UserService
	stats    *StatsService
	cfg      config.MatchingConfig
	notifier MatchNotifier
}

// MatchResult is what a successful pairing (or a match discovered by
// polling) returns to the caller.
type MatchResult struct {
	ChatID          primitive.ObjectID `json:"chat_id"`
	PartnerID       string             `json:"partner_id"`
	PartnerName     string             `json:"partner_name"`
	PartnerPlatform string             `json:"partner_platform"`
	OwnPlatform     string             `json:"own_platform"`
}

func NewMatchingService(db *mongo.Database, chats *ChatService, users *UserService, stats *StatsService, cfg config.MatchingConfig) *MatchingService {
	return &MatchingService{
		db:    db,
		queue: db.Collection(database.CollQueue),
		chats: chats,
		users: users,
		stats: stats,
		cfg:   cfg,
	}
}

// SetNotifier attaches the push channel (websocket hub, Telegram bot).
func (s *MatchingService) SetNotifier(n MatchNotifier) {
	s.notifier = n
}

// EvaluateCandidate decides what the scan does with one queue
// candidate: pair with it, skip it, or skip it and evict its ticket
// because the owner's record is missing or their presence went stale.
func EvaluateCandidate(candidateUser *models.User, now time.Time, staleAfter time.Duration) (eligible, evict bool) {
	if candidateUser == nil {
		return false, true
	}
	if candidateUser.StalePresence(now, staleAfter) {
		return false, true
	}
	if candidateUser.IsBanned() {
		return false, false
	}
	return true, false
}

// FindRandomChat attempts to pair the caller with a waiting partner.
// When no candidate is suitable the caller is registered as waiting and
// nil is returned. Store errors degrade to "no match" so the caller
// just re-polls; they are logged here, never propagated.
func (s *MatchingService) FindRandomChat(ctx context.Context, userID string) *MatchResult {
	result, err := s.findRandomChat(ctx, userID)
	if err != nil {
		logger.LogError(err, "Matchmaking scan failed", map[string]interface{}{
			"user_id": userID,
		})
		return nil
	}
	return result
}

func (s *MatchingService) findRandomChat(ctx context.Context, userID string) (*MatchResult, error) {
	// The caller's record must already exist; registration happens
	// earlier in the onboarding flow.
	caller, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil
	}

	s.users.TouchPresence(ctx, userID, caller.Platform)

	candidates, err := s.waitingCandidates(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	for _, ticket := range candidates {
		candidateUser, userErr := s.users.GetUserByID(ctx, ticket.UserID)
		if userErr != nil {
			candidateUser = nil
		}

		eligible, evict := EvaluateCandidate(candidateUser, now, s.cfg.StaleAfter)
		if evict {
			s.evictTicket(ctx, ticket)
			continue
		}
		if !eligible {
			continue
		}

		exists, chatErr := s.chats.ActiveChatBetween(ctx, userID, ticket.UserID)
		if chatErr != nil {
			return nil, chatErr
		}
		if exists {
			continue
		}

		// Claim the ticket before creating the chat: the conditional
		// delete is the only arbitration between concurrent searchers
		// scanning the same candidate. Losing the claim just means
		// someone else got there first.
		claimed, claimErr := s.claimTicket(ctx, ticket)
		if claimErr != nil {
			return nil, claimErr
		}
		if !claimed {
			continue
		}

		return s.pair(ctx, caller, candidateUser)
	}

	if err := s.enqueue(ctx, caller); err != nil {
		return nil, err
	}

	return nil, nil
}

func (s *MatchingService) waitingCandidates(ctx context.Context, userID string) ([]models.QueueEntry, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}). // oldest ticket first
		SetLimit(s.cfg.CandidateScanLimit)

	cursor, err := s.queue.Find(opCtx, bson.M{
		"status":  models.QueueStatusWaiting,
		"user_id": bson.M{"$ne": userID},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to scan queue: %w", err)
	}
	defer cursor.Close(opCtx)

	var candidates []models.QueueEntry
	if err = cursor.All(opCtx, &candidates); err != nil {
		return nil, fmt.Errorf("failed to decode queue entries: %w", err)
	}

	return candidates, nil
}

func (s *MatchingService) evictTicket(ctx context.Context, ticket models.QueueEntry) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.queue.DeleteOne(opCtx, bson.M{"_id": ticket.ID}); err != nil {
		logger.LogError(err, "Failed to evict stale ticket", map[string]interface{}{
			"ticket_user": ticket.UserID,
		})
		return
	}

	logger.LogMatchEvent("ticket_evicted", ticket.UserID, nil)
}

func (s *MatchingService) claimTicket(ctx context.Context, ticket models.QueueEntry) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := s.queue.DeleteOne(opCtx, bson.M{
		"_id":    ticket.ID,
		"status": models.QueueStatusWaiting,
	})
	if err != nil {
		return false, fmt.Errorf("failed to claim ticket: %w", err)
	}

	return result.DeletedCount == 1, nil
}

func (s *MatchingService) pair(ctx context.Context, caller, partner *models.User) (*MatchResult, error) {
	chat, err := s.chats.insertChat(
		ctx,
		[]string{caller.ID, partner.ID},
		BuildParticipantMeta(caller, partner),
		models.ChatTypeRandom,
		false,
		connectedMessage,
	)
	if err != nil {
		return nil, err
	}

	// The initiator's own ticket, if one survived an earlier search,
	// must not keep them matchable.
	s.removeTicket(ctx, caller.ID)

	s.stats.RecordChatStarted(ctx, caller.ID, partner.ID)

	logger.LogMatchEvent("match_found", caller.ID, map[string]interface{}{
		"partner_id": partner.ID,
		"chat_id":    chat.ID.Hex(),
	})

	if s.notifier != nil {
		s.notifier.NotifyMatch(ctx, chat, partner.ID)
	}

	return &MatchResult{
		ChatID:          chat.ID,
		PartnerID:       partner.ID,
		PartnerName:     partner.Name,
		PartnerPlatform: partner.Platform,
		OwnPlatform:     caller.Platform,
	}, nil
}

// enqueue registers (or refreshes) the caller's waiting ticket. The
// unique index on user_id makes this an upsert rather than
// check-then-insert, so concurrent searches cannot leave duplicates.
func (s *MatchingService) enqueue(ctx context.Context, caller *models.User) error {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	_, err := s.queue.UpdateOne(opCtx,
		bson.M{"user_id": caller.ID},
		bson.M{
			"$set": bson.M{
				"status":     models.QueueStatusWaiting,
				"platform":   caller.Platform,
				"updated_at": now,
			},
			"$setOnInsert": bson.M{
				"user_id":    caller.ID,
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue: %w", err)
	}

	logger.LogMatchEvent("waiting", caller.ID, nil)
	return nil
}

func (s *MatchingService) removeTicket(ctx context.Context, userID string) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.queue.DeleteOne(opCtx, bson.M{"user_id": userID}); err != nil {
		logger.LogError(err, "Failed to remove queue ticket", map[string]interface{}{
			"user_id": userID,
		})
	}
}

// CheckMatchStatus is the poll fallback through which the passive party
// of a pairing discovers its new chat: the most recent active
// non-support chat the caller has not yet been notified about. The
// notified_to bookkeeping is an atomic array-union, so delivery is
// at-least-once, not exactly-once.
func (s *MatchingService) CheckMatchStatus(ctx context.Context, userID string) *MatchResult {
	result, err := s.checkMatchStatus(ctx, userID)
	if err != nil {
		logger.LogError(err, "Match status check failed", map[string]interface{}{
			"user_id": userID,
		})
		return nil
	}
	return result
}

func (s *MatchingService) checkMatchStatus(ctx context.Context, userID string) (*MatchResult, error) {
	if userID == "" {
		return nil, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	chatsColl := s.db.Collection(database.CollChats)
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var chat models.Chat
	err := chatsColl.FindOne(opCtx, bson.M{
		"participants": userID,
		"is_active":    true,
		"type":         bson.M{"$ne": models.ChatTypeSupport},
		"notified_to":  bson.M{"$ne": userID},
	}, opts).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check match status: %w", err)
	}

	_, err = chatsColl.UpdateOne(opCtx, bson.M{"_id": chat.ID}, bson.M{
		"$addToSet": bson.M{"notified_to": userID},
	})
	if err != nil {
		// Delivery stays at-least-once: the caller sees this match again
		// on the next poll.
		logger.LogError(err, "Failed to mark match notified", map[string]interface{}{
			"user_id": userID,
			"chat_id": chat.ID.Hex(),
		})
	}

	partnerID := chat.PartnerOf(userID)

	result := &MatchResult{
		ChatID:    chat.ID,
		PartnerID: partnerID,
	}
	if meta, ok := chat.Meta[userID]; ok {
		result.OwnPlatform = meta.Platform
	}

	if partner, userErr := s.users.GetUserByID(ctx, partnerID); userErr == nil {
		result.PartnerName = partner.Name
		result.PartnerPlatform = partner.Platform
	} else if meta, ok := chat.Meta[partnerID]; ok {
		result.PartnerName = meta.Name
		result.PartnerPlatform = meta.Platform
	}

	return result, nil
}

// CancelSearch removes the caller's queue ticket. Missing tickets are
// not an error; the client calls this on explicit cancel and on
// page-unload, both of which may race the match itself.
func (s *MatchingService) CancelSearch(ctx context.Context, userID string) error {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.queue.DeleteOne(opCtx, bson.M{"user_id": userID})
	if err != nil {
		logger.LogError(err, "Failed to cancel search", map[string]interface{}{
			"user_id": userID,
		})
		return fmt.Errorf("failed to cancel search: %w", err)
	}

	logger.LogMatchEvent("search_cancelled", userID, nil)
	return nil
}

// QueueSize reports the number of waiting tickets (admin dashboard).
func (s *MatchingService) QueueSize(ctx context.Context) int64 {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := s.queue.CountDocuments(opCtx, bson.M{"status": models.QueueStatusWaiting})
	if err != nil {
		logger.LogError(err, "Failed to count queue", nil)
		return 0
	}

	return count
}
