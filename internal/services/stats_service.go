package services

import (
	"context"
	"time"

	"minitalk/internal/models"
	"minitalk/pkg/database"
	"minitalk/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StatsService maintains per-user and app-wide counters. Every write
// here is best-effort: failures are logged and swallowed, the counters
// are dashboard material, not authoritative state.
type StatsService struct {
	userStats *mongo.Collection
	appStats  *mongo.Collection
}

func NewStatsService(db *mongo.Database) *StatsService {
	return &StatsService{
		userStats: db.Collection(database.CollUserStats),
		appStats:  db.Collection(database.CollAppStats),
	}
}

// UpdateRunningAverage folds one new sample into a running average over
// count samples (count includes the new sample).
func UpdateRunningAverage(oldAvg float64, count int64, sample float64) float64 {
	if count <= 0 {
		return sample
	}
	if count == 1 {
		return sample
	}
	return oldAvg + (sample-oldAvg)/float64(count)
}

func (s *StatsService) RecordChatStarted(ctx context.Context, userIDs ...string) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	upsert := options.Update().SetUpsert(true)
	now := time.Now()

	for _, userID := range userIDs {
		if userID == "" || userID == models.SupportID {
			continue
		}
		_, err := s.userStats.UpdateOne(opCtx, bson.M{"_id": userID}, bson.M{
			"$inc": bson.M{"chats_started": 1},
			"$set": bson.M{"updated_at": now},
		}, upsert)
		if err != nil {
			logger.LogError(err, "Failed to record chat start", map[string]interface{}{
				"user_id": userID,
			})
		}
	}

	_, err := s.appStats.UpdateOne(opCtx, bson.M{"_id": models.AppStatsID}, bson.M{
		"$inc": bson.M{"total_chats": 1, "active_chats": 1},
		"$set": bson.M{"updated_at": now},
	}, upsert)
	if err != nil {
		logger.LogError(err, "Failed to record app chat start", nil)
	}
}

// RecordChatEnded folds a finished chat into the per-user and app-wide
// running averages. Reads-then-writes without a transaction; the
// counters tolerate a lost update.
func (s *StatsService) RecordChatEnded(ctx context.Context, userIDs []string, durationMins, messageCount int64) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()

	for _, userID := range userIDs {
		if userID == "" || userID == models.SupportID {
			continue
		}

		var stats models.UserStats
		err := s.userStats.FindOne(opCtx, bson.M{"_id": userID}).Decode(&stats)
		if err != nil && err != mongo.ErrNoDocuments {
			logger.LogError(err, "Failed to load user stats", map[string]interface{}{
				"user_id": userID,
			})
			continue
		}

		completed := stats.ChatsCompleted + 1
		_, err = s.userStats.UpdateOne(opCtx, bson.M{"_id": userID}, bson.M{
			"$inc": bson.M{
				"chats_completed": 1,
				"total_minutes":   durationMins,
			},
			"$set": bson.M{
				"avg_messages":      UpdateRunningAverage(stats.AvgMessages, completed, float64(messageCount)),
				"avg_duration_mins": UpdateRunningAverage(stats.AvgDurationMins, completed, float64(durationMins)),
				"updated_at":        now,
			},
		}, options.Update().SetUpsert(true))
		if err != nil {
			logger.LogError(err, "Failed to record chat end", map[string]interface{}{
				"user_id": userID,
			})
		}
	}

	var app models.AppStats
	err := s.appStats.FindOne(opCtx, bson.M{"_id": models.AppStatsID}).Decode(&app)
	if err != nil && err != mongo.ErrNoDocuments {
		logger.LogError(err, "Failed to load app stats", nil)
		return
	}

	completed := app.CompletedChats + 1
	_, err = s.appStats.UpdateOne(opCtx, bson.M{"_id": models.AppStatsID}, bson.M{
		"$inc": bson.M{"completed_chats": 1, "active_chats": -1},
		"$set": bson.M{
			"avg_messages":      UpdateRunningAverage(app.AvgMessages, completed, float64(messageCount)),
			"avg_duration_mins": UpdateRunningAverage(app.AvgDurationMins, completed, float64(durationMins)),
			"updated_at":        now,
		},
	}, options.Update().SetUpsert(true))
	if err != nil {
		logger.LogError(err, "Failed to record app chat end", nil)
	}
}

func (s *StatsService) RecordMessageSent(ctx context.Context, senderID string) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	upsert := options.Update().SetUpsert(true)
	now := time.Now()

	if senderID != "" && senderID != models.SupportID && senderID != models.SystemSenderID {
		_, err := s.userStats.UpdateOne(opCtx, bson.M{"_id": senderID}, bson.M{
			"$inc": bson.M{"messages_sent": 1},
			"$set": bson.M{"updated_at": now},
		}, upsert)
		if err != nil {
			logger.LogError(err, "Failed to record message send", map[string]interface{}{
				"user_id": senderID,
			})
		}
	}

	_, err := s.appStats.UpdateOne(opCtx, bson.M{"_id": models.AppStatsID}, bson.M{
		"$inc": bson.M{"total_messages": 1},
		"$set": bson.M{"updated_at": now},
	}, upsert)
	if err != nil {
		logger.LogError(err, "Failed to record app message count", nil)
	}
}

func (s *StatsService) RecordSupportChatCreated(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.appStats.UpdateOne(opCtx, bson.M{"_id": models.AppStatsID}, bson.M{
		"$inc": bson.M{"support_chats": 1},
		"$set": bson.M{"updated_at": time.Now()},
	}, options.Update().SetUpsert(true))
	if err != nil {
		logger.LogError(err, "Failed to record support chat count", nil)
	}
}

func (s *StatsService) GetAppStats(ctx context.Context) (*models.AppStats, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var app models.AppStats
	err := s.appStats.FindOne(opCtx, bson.M{"_id": models.AppStatsID}).Decode(&app)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return &models.AppStats{ID: models.AppStatsID}, nil
		}
		return nil, err
	}

	return &app, nil
}

func (s *StatsService) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var stats models.UserStats
	err := s.userStats.FindOne(opCtx, bson.M{"_id": userID}).Decode(&stats)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return &models.UserStats{UserID: userID}, nil
		}
		return nil, err
	}

	return &stats, nil
}
