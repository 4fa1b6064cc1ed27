package database

import (
	"time"

	"gorm.io/datatypes"
)

// Conversation holds the current full history for one user, serialized as a
// JSON array of role/content pairs. Saves replace the row wholesale.
type Conversation struct {
	UserID    string         `gorm:"primaryKey" json:"user_id"`
	History   datatypes.JSON `gorm:"not null" json:"history"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// KnowledgeRecord is one extracted-fact entry. Rows are insert-only: nothing
// in the system updates or deletes them.
type KnowledgeRecord struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string         `gorm:"index;not null" json:"user_id"`
	Fields    datatypes.JSON `gorm:"not null" json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
}
