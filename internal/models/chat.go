package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat type tags. An empty type means a direct (friend) chat.
const (
	ChatTypeRandom  = "random"
	ChatTypeSupport = "support"
)

// Chat status values. An absent status means the chat is active.
const (
	ChatStatusEnded    = "ended"
	ChatStatusResolved = "resolved"
)

type Chat struct {
	ID           primitive.ObjectID         `bson:"_id,omitempty" json:"id"`
	Participants []string                   `bson:"participants" json:"participants"`
	Meta         map[string]ParticipantMeta `bson:"participant_meta" json:"participant_meta"`
	Type         string                     `bson:"type,omitempty" json:"type,omitempty"`
	IsActive     bool                       `bson:"is_active" json:"is_active"`
	Status       string                     `bson:"status,omitempty" json:"status,omitempty"`
	Pinned       bool                       `bson:"pinned" json:"pinned"`

	// Denormalized preview for list rendering.
	LastMessage         string    `bson:"last_message" json:"last_message"`
	LastMessageTime     time.Time `bson:"last_message_time" json:"last_message_time"`
	LastMessageSenderID string    `bson:"last_message_sender_id" json:"last_message_sender_id"`
	MessagesCount       int64     `bson:"messages_count" json:"messages_count"`

	// Support-chat inbox flags, one per role.
	UnreadByUser    bool `bson:"unread_by_user" json:"unread_by_user"`
	UnreadBySupport bool `bson:"unread_by_support" json:"unread_by_support"`

	// Match-notification bookkeeping: participants that already learned
	// about this chat through CheckMatchStatus.
	NotifiedTo []string `bson:"notified_to,omitempty" json:"notified_to,omitempty"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	EndedBy   string     `bson:"ended_by,omitempty" json:"ended_by,omitempty"`
	Duration  int64      `bson:"duration,omitempty" json:"duration,omitempty"` // whole minutes
}

// ParticipantMeta is the per-participant denormalized copy stored on
// the chat document so list views render without a user lookup.
type ParticipantMeta struct {
	Name     string `bson:"name" json:"name"`
	Platform string `bson:"platform" json:"platform"`
	Unread   int64  `bson:"unread" json:"unread"`
}

func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// PartnerOf returns the other participant's id, or "" when userID is
// not a participant.
func (c *Chat) PartnerOf(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

func (c *Chat) Ended() bool {
	return !c.IsActive || c.Status == ChatStatusEnded || c.Status == ChatStatusResolved
}

// LastActivity normalizes the timestamp used for list ordering:
// last message time when present, otherwise updated, otherwise created.
func (c *Chat) LastActivity() time.Time {
	if !c.LastMessageTime.IsZero() {
		return c.LastMessageTime
	}
	if !c.UpdatedAt.IsZero() {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

// ChatSummary is the enriched shape returned by chat list queries.
type ChatSummary struct {
	Chat            Chat      `json:"chat"`
	PartnerID       string    `json:"partner_id"`
	PartnerName     string    `json:"partner_name"`
	PartnerPlatform string    `json:"partner_platform"`
	LastActivity    time.Time `json:"last_activity"`
	Unread          int64     `json:"unread"`
}
