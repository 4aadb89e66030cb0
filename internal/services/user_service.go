package services

import (
	"context"
	"fmt"
	"time"

	"minitalk/internal/models"
	"minitalk/internal/session"
	"minitalk/pkg/database"
	"minitalk/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserService struct {
	db             *mongo.Database
	userCollection *mongo.Collection
	rdb            *redis.Client
	staleAfter     time.Duration
}

func NewUserService(db *mongo.Database, rdb *redis.Client, staleAfter time.Duration) *UserService {
	return &UserService{
		db:             db,
		userCollection: db.Collection(database.CollUsers),
		rdb:            rdb,
		staleAfter:     staleAfter,
	}
}

func presenceKey(userID string) string {
	return fmt.Sprintf("presence:%s", userID)
}

// userLookupError maps the driver's miss onto the package sentinel so
// callers can errors.Is against ErrUserNotFound.
func userLookupError(err error) error {
	if err == mongo.ErrNoDocuments {
		return ErrUserNotFound
	}
	return fmt.Errorf("failed to get user: %w", err)
}

// GetUserByID retrieves a user document.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var user models.User
	err := s.userCollection.FindOne(opCtx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			logger.LogError(err, "Failed to get user by ID", map[string]interface{}{
				"user_id": userID,
			})
		}
		return nil, userLookupError(err)
	}

	return &user, nil
}

// GetOrCreateUser lazily materializes the caller's user record from the
// session context. Existing records are returned untouched.
func (s *UserService) GetOrCreateUser(ctx context.Context, sc session.Context) (*models.User, error) {
	if user, err := s.GetUserByID(ctx, sc.UserID); err == nil {
		return user, nil
	}

	return s.createFromContext(ctx, sc)
}

// EnsureUser guarantees a minimal record exists for the given id. When
// the id belongs to the caller, the session context enriches the new
// record; for other ids only a placeholder is written.
func (s *UserService) EnsureUser(ctx context.Context, userID string, sc *session.Context) (*models.User, error) {
	if user, err := s.GetUserByID(ctx, userID); err == nil {
		return user, nil
	}

	if sc != nil && sc.UserID == userID {
		return s.createFromContext(ctx, *sc)
	}

	return s.createFromContext(ctx, session.Context{UserID: userID, Name: "Anonymous"})
}

func (s *UserService) createFromContext(ctx context.Context, sc session.Context) (*models.User, error) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	user := &models.User{
		ID:         sc.UserID,
		Name:       sc.Name,
		Platform:   sc.Platform,
		IsOnline:   true,
		LastActive: now,
		Telegram:   sc.Identity(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if user.Name == "" {
		user.Name = "Anonymous"
	}
	if user.Platform == "" {
		user.Platform = models.PlatformWeb
	}

	_, err := s.userCollection.InsertOne(opCtx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost a create race; the record exists now.
			return s.GetUserByID(ctx, sc.UserID)
		}
		logger.LogError(err, "Failed to create user", map[string]interface{}{
			"user_id": sc.UserID,
		})
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.LogUserAction(sc.UserID, "user_created", map[string]interface{}{
		"platform": user.Platform,
	})

	return user, nil
}

// TouchPresence refreshes last-active and platform. Mongo is
// authoritative; the Redis mirror carries a TTL matching the stale
// threshold so presence checks stay one key lookup. Failures are
// logged, never propagated.
func (s *UserService) TouchPresence(ctx context.Context, userID, platform string) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	update := bson.M{
		"is_online":   true,
		"last_active": now,
		"updated_at":  now,
	}
	if platform != "" {
		update["platform"] = platform
	}

	_, err := s.userCollection.UpdateOne(opCtx, bson.M{"_id": userID}, bson.M{"$set": update})
	if err != nil {
		logger.LogError(err, "Failed to refresh presence", map[string]interface{}{
			"user_id": userID,
		})
	}

	if s.rdb != nil {
		if err := s.rdb.Set(opCtx, presenceKey(userID), now.Format(time.RFC3339), s.staleAfter).Err(); err != nil {
			logger.WithError(err).Debug("presence cache write failed")
		}
	}
}

// SetOffline clears the online flag; called on websocket disconnect.
func (s *UserService) SetOffline(ctx context.Context, userID string) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.userCollection.UpdateOne(opCtx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"is_online": false, "updated_at": time.Now()},
	})
	if err != nil {
		logger.LogError(err, "Failed to set user offline", map[string]interface{}{
			"user_id": userID,
		})
	}

	if s.rdb != nil {
		s.rdb.Del(opCtx, presenceKey(userID))
	}
}

// BackfillIdentity opportunistically fills name and Telegram identity
// on records created as placeholders. Only empty fields are written.
func (s *UserService) BackfillIdentity(ctx context.Context, userID string, sc session.Context) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return
	}

	update := bson.M{}
	if (user.Name == "" || user.Name == "Anonymous") && sc.Name != "" {
		update["name"] = sc.Name
	}
	if user.Telegram == nil && sc.TelegramID != 0 {
		update["telegram"] = sc.Identity()
	}
	if user.Platform == "" && sc.Platform != "" {
		update["platform"] = sc.Platform
	}
	if len(update) == 0 {
		return
	}
	update["updated_at"] = time.Now()

	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.userCollection.UpdateOne(opCtx, bson.M{"_id": userID}, bson.M{"$set": update}); err != nil {
		logger.LogError(err, "Failed to backfill user identity", map[string]interface{}{
			"user_id": userID,
		})
	}
}

// UpdateProfile sets the editable profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID, name string, age int, interests []string) error {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	update := bson.M{"updated_at": time.Now()}
	if name != "" {
		update["name"] = name
	}
	if age > 0 {
		update["age"] = age
	}
	if interests != nil {
		update["interests"] = interests
	}

	result, err := s.userCollection.UpdateOne(opCtx, bson.M{"_id": userID}, bson.M{"$set": update})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetStatus changes a user's moderation status (admin path).
func (s *UserService) SetStatus(ctx context.Context, userID, status, adminID string) error {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := s.userCollection.UpdateOne(opCtx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"status": status, "updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}

	logger.LogAdminAction(adminID, "user_status_change", userID, map[string]interface{}{
		"status": status,
	})

	return nil
}

// GetUserSummary returns dashboard counters.
func (s *UserService) GetUserSummary(ctx context.Context) (*models.UserStatsSummary, error) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	total, err := s.userCollection.CountDocuments(opCtx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	online, err := s.userCollection.CountDocuments(opCtx, bson.M{"is_online": true})
	if err != nil {
		return nil, fmt.Errorf("failed to count online users: %w", err)
	}

	banned, err := s.userCollection.CountDocuments(opCtx, bson.M{
		"status": bson.M{"$in": []string{"banned", "suspended"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count banned users: %w", err)
	}

	activeChats, err := s.db.Collection(database.CollChats).CountDocuments(opCtx, bson.M{"is_active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to count active chats: %w", err)
	}

	return &models.UserStatsSummary{
		TotalUsers:  total,
		OnlineUsers: online,
		BannedUsers: banned,
		ActiveChats: activeChats,
	}, nil
}

// ListUsers returns a page of users for the admin console.
func (s *UserService) ListUsers(ctx context.Context, page, limit int64) ([]models.User, int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	total, err := s.userCollection.CountDocuments(opCtx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	opts := options.Find().
		SetLimit(limit).
		SetSkip((page - 1) * limit).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.userCollection.Find(opCtx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(opCtx)

	var users []models.User
	if err = cursor.All(opCtx, &users); err != nil {
		return nil, 0, fmt.Errorf("failed to decode users: %w", err)
	}

	return users, total, nil
}
