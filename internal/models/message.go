package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"

	// SystemSenderID marks messages produced by the service itself.
	SystemSenderID = "system"
)

// Message is one chat utterance. Messages are append-only: there is no
// edit operation and the core paths never delete them.
type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID     primitive.ObjectID `bson:"chat_id" json:"chat_id"`
	SenderID   string             `bson:"sender_id" json:"sender_id"`
	SenderName string             `bson:"sender_name" json:"sender_name"`
	Text       string             `bson:"text" json:"text"`
	Type       string             `bson:"type" json:"type"`

	// Timestamp is assigned on the server at write time; ClientTime is
	// the caller's own stamp, kept so optimistic UI echoes stay ordered
	// before the write commits.
	Timestamp  time.Time  `bson:"timestamp" json:"timestamp"`
	ClientTime *time.Time `bson:"client_time,omitempty" json:"client_time,omitempty"`

	Read bool `bson:"read" json:"read"`
}
