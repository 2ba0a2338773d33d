package handler

import (
	"context"

	"github.com/go-telegram/bot/models"
)

// SendOptions carries the optional platform fields for sends and edits.
// Fields are passed through to the gateway untouched.
type SendOptions struct {
	// ReplyTo makes the message a reply to the given message ID.
	ReplyTo int
	// ParseMode selects the text markup mode ("MarkdownV2", "HTML", ...).
	ParseMode models.ParseMode
	// Silent sends the message without a notification.
	Silent bool
}

// Gateway is the narrow platform surface the dispatcher and contexts
// consume. internal/telegram implements it over go-telegram/bot.
type Gateway interface {
	// SendMessage sends text to a chat and returns the created message.
	SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (*models.Message, error)

	// EditMessageText replaces the text of an existing message.
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *SendOptions) (*models.Message, error)

	// DeleteMessage deletes a message.
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error

	// FetchMessage returns the current body of a known message. The Bot
	// API has no direct lookup, so implementations serve this from the
	// message cache.
	FetchMessage(ctx context.Context, chatID int64, messageID int) (*models.Message, error)

	// OwnerIDs returns the user IDs that own the bot.
	OwnerIDs(ctx context.Context) ([]int64, error)
}
