// Package cache stores seen Telegram messages so response proxies can
// fetch message bodies later; the Bot API has no lookup call.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-telegram/bot/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry is one cached Telegram message.
type Entry struct {
	ID        uint           `gorm:"primarykey"`
	ChatID    int64          `gorm:"index:idx_cache_chat_message,unique;not null"`
	MessageID int64          `gorm:"index:idx_cache_chat_message,unique;not null"`
	Date      int64          `gorm:"index;not null"`
	Message   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for Entry.
func (Entry) TableName() string {
	return "cache_entries"
}

// Service provides message cache operations.
type Service struct {
	db *gorm.DB
}

// NewService creates a new cache service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Put adds or updates a message in the cache.
func (s *Service) Put(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message %d: %w", msg.ID, err)
	}

	entry := &Entry{
		ChatID:    msg.Chat.ID,
		MessageID: int64(msg.ID),
		Date:      int64(msg.Date),
		Message:   datatypes.JSON(body),
	}

	// Upsert: edits replace the stored body.
	return s.db.WithContext(ctx).
		Where("chat_id = ? AND message_id = ?", entry.ChatID, entry.MessageID).
		Assign(entry).
		FirstOrCreate(entry).Error
}

// Lookup returns the cached body of a message. It satisfies the gateway's
// message source.
func (s *Service) Lookup(ctx context.Context, chatID int64, messageID int) (*models.Message, error) {
	var entry Entry
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND message_id = ?", chatID, int64(messageID)).
		First(&entry).Error
	if err != nil {
		return nil, fmt.Errorf("lookup message %d in chat %d: %w", messageID, chatID, err)
	}

	var msg models.Message
	if err := json.Unmarshal(entry.Message, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal cached message %d: %w", messageID, err)
	}
	return &msg, nil
}

// Clean removes cache entries older than the specified duration.
func (s *Service) Clean(ctx context.Context, keepDuration time.Duration) (int64, error) {
	cutoff := time.Now().Add(-keepDuration).Unix()
	result := s.db.WithContext(ctx).
		Where("date < ?", cutoff).
		Delete(&Entry{})
	return result.RowsAffected, result.Error
}
