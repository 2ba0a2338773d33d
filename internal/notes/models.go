// Package notes is a small per-chat note board. It is the demo surface
// for command groups: subcommand descent, arity bounds and checks running
// against real storage.
package notes

import (
	"time"

	"gorm.io/datatypes"
)

// Note is one saved note in the database.
type Note struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ChatID    int64          `gorm:"index;not null" json:"chat_id"`
	Author    datatypes.JSON `gorm:"type:jsonb;not null" json:"author"` // Telegram user who saved the note
	Text      string         `gorm:"not null" json:"text"`
	CreatedAt time.Time      `json:"created_at"`
}

// TableName specifies the table name for Note.
func (Note) TableName() string {
	return "notes"
}
