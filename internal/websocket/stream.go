package websocket

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

// Watcher tails the messages and chats collections and turns writes
// into live pushes. This keeps the HTTP send path free of any hub
// wiring: whatever process inserted the message, subscribers see it.
// Requires a replica set; on a standalone server the watch call fails
// and the hub silently degrades to poll-only delivery.
type Watcher struct {
	db  *mongo.Database
	hub *Hub
}

func NewWatcher(db *mongo.Database, hub *Hub) *Watcher {
	return &Watcher{db: db, hub: hub}
}

// Run starts both collection watchers. Blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	go w.watchMessages(ctx)
	w.watchChats(ctx)
}

func (w *Watcher) watchMessages(ctx context.Context) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"operationType": "insert"}}},
	}

	w.watchLoop(ctx, "messages", func() (*mongo.ChangeStream, error) {
		return w.db.Collection(database.CollMessages).Watch(ctx, pipeline,
			options.ChangeStream().SetFullDocument(options.UpdateLookup))
	}, func(event bson.M) {
		raw, err := bson.Marshal(event["fullDocument"])
		if err != nil {
			return
		}
		var message models.Message
		if err := bson.Unmarshal(raw, &message); err != nil {
			return
		}

		push := NewWSMessage(MessageTypeNewMessage, message.Text, map[string]interface{}{
			"message_id":  message.ID.Hex(),
			"sender_id":   message.SenderID,
			"sender_name": message.SenderName,
			"sent_at":     message.Timestamp,
		})
		push.SetFrom(message.SenderID)
		push.SetChatID(message.ChatID.Hex())

		w.hub.PushToChat(message.ChatID.Hex(), message.SenderID, push)
	})
}

func (w *Watcher) watchChats(ctx context.Context) {
	// Only chat-ending updates matter here; match creation is pushed
	// directly by the pairing code.
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"operationType":                          "update",
			"updateDescription.updatedFields.status": models.ChatStatusEnded,
		}}},
	}

	w.watchLoop(ctx, "chats", func() (*mongo.ChangeStream, error) {
		return w.db.Collection(database.CollChats).Watch(ctx, pipeline,
			options.ChangeStream().SetFullDocument(options.UpdateLookup))
	}, func(event bson.M) {
		raw, err := bson.Marshal(event["fullDocument"])
		if err != nil {
			return
		}
		var chat models.Chat
		if err := bson.Unmarshal(raw, &chat); err != nil {
			return
		}

		w.hub.NotifyChatEnded(&chat, chat.EndedBy)
	})
}

// watchLoop keeps one change stream alive, reopening it with backoff
// when it errors out.
func (w *Watcher) watchLoop(ctx context.Context, name string, open func() (*mongo.ChangeStream, error), handle func(bson.M)) {
	backoff := time.Second

	for ctx.Err() == nil {
		stream, err := open()
		if err != nil {
			logger.WithError(err).WithField("collection", name).Warn("Change stream unavailable, live delivery degraded")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < time.Minute {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for stream.Next(ctx) {
			var event bson.M
			if err := stream.Decode(&event); err != nil {
				logger.WithError(err).WithField("collection", name).Error("Failed to decode change event")
				continue
			}
			handle(event)
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			logger.WithError(err).WithField("collection", name).Warn("Change stream interrupted, reopening")
		}
		stream.Close(context.Background())
	}
}
