// Package notify carries match events out of the request path: a
// Telegram bot DM for users who are not currently connected, and a
// fan-out wrapper so the websocket hub and the bot can both listen.
package notify

import (
	"context"
	"fmt"

	"minitalk/internal/models"
	"minitalk/internal/services"
	"minitalk/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier DMs the passive party of a pairing through the bot.
// Everything here is best-effort: a failed send only logs.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	users  *services.UserService
	online func(userID string) bool
}

// NewTelegramNotifier returns nil when no token is configured, which
// callers treat as "notifications off". The online check suppresses
// the DM for users whose open socket already received the push.
func NewTelegramNotifier(botToken string, users *services.UserService, online func(userID string) bool) (*TelegramNotifier, error) {
	if botToken == "" {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}

	logger.WithField("bot_username", bot.Self.UserName).Info("Telegram notifier ready")

	return &TelegramNotifier{bot: bot, users: users, online: online}, nil
}

func (n *TelegramNotifier) NotifyMatch(ctx context.Context, chat *models.Chat, passiveUserID string) {
	if n == nil || n.bot == nil {
		return
	}

	if n.online != nil && n.online(passiveUserID) {
		return
	}

	user, err := n.users.GetUserByID(ctx, passiveUserID)
	if err != nil || user.Telegram == nil {
		return
	}

	msg := tgbotapi.NewMessage(user.Telegram.TelegramID, "Someone is waiting to chat with you! Open the app to say hello.")
	if _, err := n.bot.Send(msg); err != nil {
		logger.LogError(err, "Failed to send match DM", map[string]interface{}{
			"user_id": passiveUserID,
		})
	}
}

// Fanout relays a match event to every attached notifier.
type Fanout struct {
	targets []services.MatchNotifier
}

func NewFanout(targets ...services.MatchNotifier) *Fanout {
	kept := make([]services.MatchNotifier, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return &Fanout{targets: kept}
}

func (f *Fanout) NotifyMatch(ctx context.Context, chat *models.Chat, passiveUserID string) {
	for _, t := range f.targets {
		t.NotifyMatch(ctx, chat, passiveUserID)
	}
}
