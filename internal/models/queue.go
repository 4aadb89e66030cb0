package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QueueStatusWaiting is the only ticket status the matching path uses.
const QueueStatusWaiting = "waiting"

// QueueEntry is one user's outstanding request to be matched with a
// random partner. A unique index on user_id keeps it to one ticket per
// user.
type QueueEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	Status    string             `bson:"status" json:"status"`
	Platform  string             `bson:"platform" json:"platform"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
