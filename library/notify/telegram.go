// Package notify pushes short text messages to chat channels.
package notify

import (
	"context"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	tb "gopkg.in/telebot.v3"
)

const maxMessageLen = 4096

// sender is the subset of *tb.Bot used to push messages
type sender interface {
	Send(to tb.Recipient, what interface{}, opts ...interface{}) (*tb.Message, error)
}

// Telegram sends messages to one chat
type Telegram struct {
	bot   sender
	chat  tb.Recipient
	token string
}

// NewTelegram creates a send-only bot, it does not call getMe
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}

	bot, err := tb.NewBot(tb.Settings{
		Token:   token,
		Offline: true,
		Poller:  &tb.LongPoller{Timeout: time.Second},
	})
	if err != nil {
		return nil, errors.Wrap(err, "new telegram bot")
	}

	return &Telegram{bot: bot, chat: &tb.Chat{ID: chatID}, token: token}, nil
}

// SendText posts text, long messages are truncated
func (t *Telegram) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	runes := []rune(text)
	if len(runes) > maxMessageLen {
		text = string(runes[:maxMessageLen-1]) + "…"
	}

	if _, err := t.bot.Send(t.chat, text, &tb.SendOptions{
		DisableWebPagePreview: true,
	}); err != nil {
		// transport errors quote the api url, which embeds the token
		if t.token != "" && strings.Contains(err.Error(), t.token) {
			return errors.Errorf("send telegram message: %s",
				strings.ReplaceAll(err.Error(), t.token, "<token>"))
		}

		return errors.Wrap(err, "send telegram message")
	}

	return nil
}
