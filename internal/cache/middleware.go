package cache

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot/models"

	"github.com/heraldbot/herald/internal/handler"
)

// Middleware returns an update handler that feeds every seen message into
// the cache before command handling runs.
func Middleware(service *Service, logger *slog.Logger) handler.UpdateHandler {
	return func(ctx context.Context, update *models.Update) error {
		var msg *models.Message
		switch {
		case update == nil:
			return nil
		case update.Message != nil:
			msg = update.Message
		case update.EditedMessage != nil:
			msg = update.EditedMessage
		default:
			return nil
		}

		if err := service.Put(ctx, msg); err != nil {
			return err
		}
		logger.Debug("cached message", "chat_id", msg.Chat.ID, "message_id", msg.ID)
		return nil
	}
}
