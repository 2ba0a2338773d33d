// Package telegram implements the handler gateway over go-telegram/bot.
package telegram

import (
	"context"

	"github.com/go-telegram/bot/models"
)

// MessageSource serves message bodies by chat and message ID. The Bot API
// has no message lookup call, so the gateway reads them back from the
// message cache.
type MessageSource interface {
	Lookup(ctx context.Context, chatID int64, messageID int) (*models.Message, error)
}

// Config holds the gateway's owner metadata settings.
type Config struct {
	// OwnerIDs are user IDs always treated as bot owners.
	OwnerIDs []int64
	// OwnerChatID, when set, names a chat whose administrators are also
	// treated as owners.
	OwnerChatID int64
}
