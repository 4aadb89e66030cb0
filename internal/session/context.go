// Package session models the caller's platform identity as an explicit
// value threaded into the services, instead of the ambient local-storage
// lookups the mini-app client used. Handlers build it from verified
// Telegram initData; tests inject fixtures directly.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"minitalk/internal/models"
	"minitalk/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Context is the platform-identity blob for one caller.
type Context struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Username     string `json:"username,omitempty"`
	Platform     string `json:"platform"`
	LanguageCode string `json:"language_code,omitempty"`
	TelegramID   int64  `json:"telegram_id,omitempty"`
	Development  bool   `json:"development,omitempty"`
}

// FromTelegram builds a session context from a verified Telegram
// WebApp user. The opaque user id is the numeric Telegram id rendered
// as a string, matching how chats and queue tickets key users.
func FromTelegram(telegramID int64, name, username, languageCode, platform string) Context {
	if platform == "" {
		platform = models.PlatformTelegramMobile
	}
	return Context{
		UserID:       strconv.FormatInt(telegramID, 10),
		Name:         name,
		Username:     username,
		Platform:     platform,
		LanguageCode: languageCode,
		TelegramID:   telegramID,
	}
}

// NewDevContext synthesizes an identity for non-hosted development use.
func NewDevContext(name string) Context {
	if name == "" {
		name = "Guest"
	}
	return Context{
		UserID:      "dev-" + uuid.NewString(),
		Name:        name,
		Platform:    models.PlatformWeb,
		Development: true,
	}
}

func (c Context) Identity() *models.TelegramIdentity {
	if c.TelegramID == 0 {
		return nil
	}
	return &models.TelegramIdentity{
		TelegramID:   c.TelegramID,
		Username:     c.Username,
		LanguageCode: c.LanguageCode,
	}
}

// Store caches session contexts in Redis so repeated requests skip the
// initData parse. Best-effort: a nil or unavailable Redis client turns
// the store into a no-op and callers fall back to the request payload.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func sessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}

func (s *Store) Save(ctx context.Context, sc Context) {
	if s == nil || s.rdb == nil {
		return
	}

	payload, err := json.Marshal(sc)
	if err != nil {
		return
	}

	if err := s.rdb.Set(ctx, sessionKey(sc.UserID), payload, s.ttl).Err(); err != nil {
		logger.WithError(err).Debug("session cache write failed")
	}
}

func (s *Store) Load(ctx context.Context, userID string) (Context, bool) {
	if s == nil || s.rdb == nil {
		return Context{}, false
	}

	payload, err := s.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		return Context{}, false
	}

	var sc Context
	if err := json.Unmarshal(payload, &sc); err != nil {
		return Context{}, false
	}

	return sc, true
}

func (s *Store) Delete(ctx context.Context, userID string) {
	if s == nil || s.rdb == nil {
		return
	}
	s.rdb.Del(ctx, sessionKey(userID))
}
