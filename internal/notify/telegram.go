// Package notify forwards staff notifications to a Telegram chat.
package notify

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Notifier delivers a plain text message to staff.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop is used when no chat is configured.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

// Telegram sends messages to one chat as the configured bot.
type Telegram struct {
	bot    *telego.Bot
	chatID int64
}

func NewTelegram(token string, chatID int64, opts ...telego.BotOption) (*Telegram, error) {
	opts = append([]telego.BotOption{telego.WithDiscardLogger()}, opts...)
	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	if _, err := t.bot.SendMessage(ctx, tu.Message(tu.ID(t.chatID), text)); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
