package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/heraldbot/herald/internal/handler"
)

// Gateway adapts go-telegram/bot to the narrow surface the dispatcher
// consumes.
type Gateway struct {
	bot    *bot.Bot
	source MessageSource
	cfg    Config
}

// NewGateway wraps an initialized bot. source may be nil, in which case
// FetchMessage is unavailable.
func NewGateway(b *bot.Bot, source MessageSource, cfg Config) *Gateway {
	return &Gateway{bot: b, source: source, cfg: cfg}
}

// SendMessage sends text to a chat.
func (g *Gateway) SendMessage(ctx context.Context, chatID int64, text string, opts *handler.SendOptions) (*models.Message, error) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if opts != nil {
		params.ParseMode = opts.ParseMode
		params.DisableNotification = opts.Silent
		if opts.ReplyTo != 0 {
			params.ReplyParameters = &models.ReplyParameters{MessageID: opts.ReplyTo}
		}
	}

	msg, err := g.bot.SendMessage(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	return msg, nil
}

// EditMessageText replaces the text of a sent message.
func (g *Gateway) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *handler.SendOptions) (*models.Message, error) {
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	}
	if opts != nil {
		params.ParseMode = opts.ParseMode
	}

	msg, err := g.bot.EditMessageText(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("edit message %d in chat %d: %w", messageID, chatID, err)
	}
	return msg, nil
}

// DeleteMessage deletes a sent message.
func (g *Gateway) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := g.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	if err != nil {
		return fmt.Errorf("delete message %d in chat %d: %w", messageID, chatID, err)
	}
	return nil
}

// FetchMessage returns the current body of a known message from the
// configured message source.
func (g *Gateway) FetchMessage(ctx context.Context, chatID int64, messageID int) (*models.Message, error) {
	if g.source == nil {
		return nil, fmt.Errorf("fetch message %d in chat %d: no message source configured", messageID, chatID)
	}
	return g.source.Lookup(ctx, chatID, messageID)
}

// OwnerIDs returns the configured owner IDs plus, when an owner chat is
// set, the administrators of that chat.
func (g *Gateway) OwnerIDs(ctx context.Context) ([]int64, error) {
	ids := append([]int64(nil), g.cfg.OwnerIDs...)
	if g.cfg.OwnerChatID == 0 {
		return ids, nil
	}

	admins, err := g.bot.GetChatAdministrators(ctx, &bot.GetChatAdministratorsParams{
		ChatID: g.cfg.OwnerChatID,
	})
	if err != nil {
		return nil, fmt.Errorf("get administrators of chat %d: %w", g.cfg.OwnerChatID, err)
	}

	for _, member := range admins {
		switch {
		case member.Owner != nil && member.Owner.User != nil:
			ids = append(ids, member.Owner.User.ID)
		case member.Administrator != nil:
			ids = append(ids, member.Administrator.User.ID)
		}
	}
	return ids, nil
}

// Ensure Gateway satisfies the dispatcher's surface.
var _ handler.Gateway = (*Gateway)(nil)
