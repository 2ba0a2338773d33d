package notes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-telegram/bot/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store handles persistence of notes.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new note store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Add saves one note for a chat.
func (s *Store) Add(ctx context.Context, chatID int64, author *models.User, text string) (*Note, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot store an empty note")
	}

	authorJSON, err := json.Marshal(author)
	if err != nil {
		return nil, fmt.Errorf("marshal author: %w", err)
	}

	note := &Note{
		ChatID: chatID,
		Author: datatypes.JSON(authorJSON),
		Text:   text,
	}
	if err := s.db.WithContext(ctx).Create(note).Error; err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

// List returns up to limit notes for a chat, newest first.
func (s *Store) List(ctx context.Context, chatID int64, limit int) ([]Note, error) {
	var found []Note
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&found).Error
	if err != nil {
		return nil, fmt.Errorf("list notes for chat %d: %w", chatID, err)
	}
	return found, nil
}

// Delete removes a note by ID within a chat. It returns
// gorm.ErrRecordNotFound when the note does not exist in that chat.
func (s *Store) Delete(ctx context.Context, chatID int64, id uint) error {
	result := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&Note{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete note %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Random returns a random note for a chat.
func (s *Store) Random(ctx context.Context, chatID int64) (*Note, error) {
	var note Note

	// Random ordering - PostgreSQL specific.
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("RANDOM()").
		First(&note).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}
