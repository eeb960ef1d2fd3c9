package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/model"
)

// Notifier is told about every stored entry
type Notifier interface {
	Notify(ctx context.Context, entry *model.Entry) error
}

// TextSender delivers a plain text message, like *notify.Telegram
type TextSender interface {
	SendText(ctx context.Context, text string) error
}

// TextNotifier formats entries as text and hands them to a TextSender
type TextNotifier struct {
	sender      TextSender
	timelineURL string
}

// NewTextNotifier creates a notifier, timelineURL is optional
func NewTextNotifier(sender TextSender, timelineURL string) (*TextNotifier, error) {
	if sender == nil {
		return nil, errors.New("sender is nil")
	}

	return &TextNotifier{sender: sender, timelineURL: timelineURL}, nil
}

// Notify implements Notifier
func (n *TextNotifier) Notify(ctx context.Context, entry *model.Entry) error {
	if err := n.sender.SendText(ctx, FormatNotification(entry, n.timelineURL)); err != nil {
		return errors.Wrap(err, "send notification")
	}

	return nil
}

// FormatNotification renders entry as a short chat message
func FormatNotification(entry *model.Entry, timelineURL string) string {
	var (
		images int
		embeds []string
	)
	for _, it := range entry.Media.Items() {
		switch v := it.(type) {
		case *model.ImageItem:
			images++
		case *model.EmbedItem:
			embeds = append(embeds, v.URL)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "new changelog entry at %s\n\n%s\n", entry.Date, entry.Text)
	if images > 0 {
		fmt.Fprintf(&sb, "\nimages: %d\n", images)
	}
	for _, u := range embeds {
		fmt.Fprintf(&sb, "\n%s", u)
	}
	if len(embeds) > 0 {
		sb.WriteString("\n")
	}
	if timelineURL != "" {
		fmt.Fprintf(&sb, "\n%s\n", timelineURL)
	}

	return strings.TrimRight(sb.String(), "\n")
}
