package models

import (
	"time"
)

// Platform tags a user's host client. The values mirror what the
// mini-app reports and are denormalized onto chats and queue tickets.
const (
	PlatformWeb            = "web"
	PlatformMobileWeb      = "mobile-web"
	PlatformTelegramMobile = "telegram-mobile"
	PlatformTelegramWeb    = "telegram-web"
)

// SupportID is the synthetic participant on the other side of every
// support chat. It never has a user document.
const SupportID = "support"

type User struct {
	ID         string            `bson:"_id" json:"id"`
	Name       string            `bson:"name" json:"name"`
	Age        int               `bson:"age,omitempty" json:"age,omitempty"`
	Interests  []string          `bson:"interests,omitempty" json:"interests,omitempty"`
	Platform   string            `bson:"platform" json:"platform"`
	IsOnline   bool              `bson:"is_online" json:"is_online"`
	LastActive time.Time         `bson:"last_active" json:"last_active"`
	Telegram   *TelegramIdentity `bson:"telegram,omitempty" json:"telegram,omitempty"`
	Status     string            `bson:"status,omitempty" json:"status,omitempty"` // "" = active, banned, suspended
	CreatedAt  time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `bson:"updated_at" json:"updated_at"`
}

// TelegramIdentity is the platform-identity blob supplied by the host
// client SDK, or synthesized locally for development identities.
type TelegramIdentity struct {
	TelegramID   int64  `bson:"telegram_id" json:"telegram_id"`
	Username     string `bson:"username,omitempty" json:"username,omitempty"`
	LanguageCode string `bson:"language_code,omitempty" json:"language_code,omitempty"`
}

func (u *User) IsBanned() bool {
	return u.Status == "banned" || u.Status == "suspended"
}

// StalePresence reports whether the user's last-active timestamp is
// older than the given threshold at the given instant.
func (u *User) StalePresence(now time.Time, threshold time.Duration) bool {
	return u.LastActive.IsZero() || now.Sub(u.LastActive) > threshold
}

type UserStatsSummary struct {
	TotalUsers  int64 `json:"total_users"`
	OnlineUsers int64 `json:"online_users"`
	BannedUsers int64 `json:"banned_users"`
	ActiveChats int64 `json:"active_chats"`
}
