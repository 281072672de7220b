package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"confessbot/internal/model"
	"confessbot/internal/text"
)

// Sender is the slice of the chat transport the router needs. The
// context parameter bounds retries; the Telegram client itself is
// synchronous.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendWithMarkup(ctx context.Context, chatID int64, text string, markup interface{}) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Notifier sends messages through the Telegram Bot API. It implements
// both the router's Sender and the worker's Messenger.
type Notifier struct {
	api         *tgbotapi.BotAPI
	channel     string // numeric chat id or @channelname
	botUsername string
}

func NewNotifier(api *tgbotapi.BotAPI, channel, botUsername string) *Notifier {
	return &Notifier{api: api, channel: channel, botUsername: botUsername}
}

func (n *Notifier) SendText(ctx context.Context, chatID int64, text string) error {
	return n.SendWithMarkup(ctx, chatID, text, nil)
}

func (n *Notifier) SendWithMarkup(ctx context.Context, chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return nil
}

// SendModerationRequest sends a confession preview with approve/reject
// actions to an admin.
func (n *Notifier) SendModerationRequest(ctx context.Context, adminID int64, c *model.Confession) error {
	preview := text.Truncate(c.Text, 200)
	body := fmt.Sprintf("🤫 *New Confession #%d*\n\n%s\n\n*Actions:*", c.Number, preview)
	return n.SendWithMarkup(ctx, adminID, body, moderationKeyboard(c.ID))
}

// PostToChannel publishes an approved confession to the public channel
// with a deep link back into the bot for comments.
func (n *Notifier) PostToChannel(ctx context.Context, c *model.Confession) error {
	body := fmt.Sprintf("#%d\n\n%s\n\n💬 Comment on this confession:", c.Number, c.Text)
	markup := channelKeyboard(n.botUsername, c.ID)

	var msg tgbotapi.MessageConfig
	if chatID, err := strconv.ParseInt(n.channel, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(chatID, body)
	} else {
		msg = tgbotapi.NewMessageToChannel(n.channel, body)
	}
	msg.ReplyMarkup = markup
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("post confession #%d to channel: %w", c.Number, err)
	}
	log.Printf("[Notifier] Posted confession #%d to channel", c.Number)
	return nil
}

// AnswerCallback acknowledges a button press so the client stops
// showing a spinner. Failures are not fatal to the dispatch.
func (n *Notifier) AnswerCallback(ctx context.Context, callbackID, text string) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	if _, err := n.api.Request(cb); err != nil {
		return fmt.Errorf("answer callback %s: %w", callbackID, err)
	}
	return nil
}
