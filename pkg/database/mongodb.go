package database

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"minitalk/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	client   *mongo.Client
	database *mongo.Database
	once     sync.Once
)

// Collection names used across the service.
const (
	CollUsers     = "users"
	CollChats     = "chats"
	CollMessages  = "messages"
	CollQueue     = "queue"
	CollReports   = "reports"
	CollUserStats = "user_stats"
	CollAppStats  = "app_stats"
	CollAdmins    = "admins"
)

// InitMongoDB initializes the MongoDB connection.
func InitMongoDB(cfg config.MongoConfig) error {
	var err error

	once.Do(func() {
		err = connect(cfg)
	})

	return err
}

func connect(cfg config.MongoConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Minute).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetRetryWrites(true).
		SetRetryReads(true)

	var err error
	client, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database = client.Database(cfg.Database)

	log.Printf("Connected to MongoDB database: %s", cfg.Database)

	go func() {
		if err := createIndexes(); err != nil {
			log.Printf("Warning: failed to create indexes: %v", err)
		}
	}()

	// Evict queue tickets whose owner never came back. The matching scan
	// already skips stale tickets; this keeps the collection from growing.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := CleanupStaleTickets(24 * time.Hour); err != nil {
				log.Printf("Queue cleanup error: %v", err)
			}
		}
	}()

	return nil
}

// GetDatabase returns the database instance
func GetDatabase() *mongo.Database {
	if database == nil {
		log.Fatal("Database not initialized. Call InitMongoDB first.")
	}
	return database
}

// GetClient returns the MongoDB client
func GetClient() *mongo.Client {
	if client == nil {
		log.Fatal("MongoDB client not initialized. Call InitMongoDB first.")
	}
	return client
}

// Disconnect closes the MongoDB connection.
func Disconnect() error {
	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return client.Disconnect(ctx)
	}
	return nil
}

// HealthCheck reports connection state for the admin console.
func HealthCheck() map[string]interface{} {
	if database == nil {
		return map[string]interface{}{
			"status": "disconnected",
			"error":  "database not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	return map[string]interface{}{
		"status":   "connected",
		"database": database.Name(),
	}
}

func createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []struct {
		collection string
		indexes    []mongo.IndexModel
	}{
		{
			collection: CollUsers,
			indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "telegram.telegram_id", Value: 1}},
					Options: options.Index().SetSparse(true),
				},
				{
					Keys: bson.D{{Key: "is_online", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "last_active", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "status", Value: 1}},
				},
			},
		},
		{
			collection: CollQueue,
			indexes: []mongo.IndexModel{
				{
					// One ticket per user; the matching path relies on this
					// instead of check-then-insert.
					Keys:    bson.D{{Key: "user_id", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
				{
					Keys: bson.D{
						{Key: "status", Value: 1},
						{Key: "created_at", Value: 1},
					},
				},
			},
		},
		{
			collection: CollChats,
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "participants", Value: 1}},
				},
				{
					Keys: bson.D{
						{Key: "participants", Value: 1},
						{Key: "is_active", Value: 1},
					},
				},
				{
					Keys: bson.D{{Key: "type", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "last_message_time", Value: -1}},
				},
				{
					Keys: bson.D{{Key: "unread_by_support", Value: 1}},
				},
			},
		},
		{
			collection: CollMessages,
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{
						{Key: "chat_id", Value: 1},
						{Key: "timestamp", Value: 1},
					},
				},
				{
					Keys: bson.D{{Key: "sender_id", Value: 1}},
				},
				{
					Keys: bson.D{
						{Key: "chat_id", Value: 1},
						{Key: "read", Value: 1},
					},
				},
			},
		},
		{
			collection: CollReports,
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "reported_user_id", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "status", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "created_at", Value: 1}},
				},
			},
		},
		{
			collection: CollAdmins,
			indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "username", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
			},
		},
	}

	for _, indexGroup := range indexes {
		collection := database.Collection(indexGroup.collection)

		if len(indexGroup.indexes) > 0 {
			_, err := collection.Indexes().CreateMany(ctx, indexGroup.indexes)
			if err != nil {
				log.Printf("Failed to create indexes for collection %s: %v", indexGroup.collection, err)
				continue
			}
		}
	}

	return nil
}

// Transaction helper functions
type TransactionFunc func(ctx mongo.SessionContext) (interface{}, error)

// WithTransaction executes a function within a MongoDB transaction.
func WithTransaction(fn TransactionFunc) (interface{}, error) {
	session, err := client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(context.Background())

	return session.WithTransaction(context.Background(), fn)
}

// GetCollection returns a collection with error handling
func GetCollection(name string) *mongo.Collection {
	if database == nil {
		log.Fatal("Database not initialized")
	}
	return database.Collection(name)
}

// CleanupStaleTickets deletes queue tickets older than maxAge.
func CleanupStaleTickets(maxAge time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	queue := database.Collection(CollQueue)
	result, err := queue.DeleteMany(ctx, bson.M{
		"created_at": bson.M{"$lt": time.Now().Add(-maxAge)},
	})
	if err != nil {
		return err
	}

	if result.DeletedCount > 0 {
		log.Printf("Removed %d stale queue tickets", result.DeletedCount)
	}

	return nil
}
