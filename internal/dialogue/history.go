package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"counsel-backend/internal/database"
)

// HistoryStore persists the full conversation history for a user. Storage
// failures are recovered here: Load falls back to the configured default and
// Save becomes a logged no-op, so callers never branch on storage errors.
type HistoryStore interface {
	// Load returns the persisted history, or the deployment default when no
	// record exists.
	Load(ctx context.Context, userID string) []Message

	// Save fully replaces the persisted history for the user.
	Save(ctx context.Context, userID string, history []Message)
}

type GormHistoryStore struct {
	db   *gorm.DB
	seed []Message
}

// NewGormHistoryStore creates a history store backed by the conversations
// table. When directive is non-empty, histories for unknown users default to
// a single system message carrying it; otherwise they default to empty. A nil
// db puts the store in no-persistence mode: loads return the default and
// saves are no-ops.
func NewGormHistoryStore(db *gorm.DB, directive string) *GormHistoryStore {
	var seed []Message
	if directive != "" {
		seed = []Message{{Role: RoleSystem, Content: directive}}
	}
	return &GormHistoryStore{db: db, seed: seed}
}

func (s *GormHistoryStore) Load(ctx context.Context, userID string) []Message {
	if s.db == nil {
		return s.defaultHistory()
	}

	var row database.Conversation
	err := s.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.defaultHistory()
	}
	if err != nil {
		slog.Error("error loading conversation, using default history", "user_id", userID, "error", err)
		return s.defaultHistory()
	}

	var history []Message
	if err := json.Unmarshal(row.History, &history); err != nil {
		slog.Error("corrupt conversation history, using default", "user_id", userID, "error", err)
		return s.defaultHistory()
	}
	return history
}

func (s *GormHistoryStore) Save(ctx context.Context, userID string, history []Message) {
	if s.db == nil {
		return
	}

	raw, err := json.Marshal(history)
	if err != nil {
		slog.Error("error serializing conversation history", "user_id", userID, "error", err)
		return
	}

	row := database.Conversation{
		UserID:    userID,
		History:   datatypes.JSON(raw),
		UpdatedAt: time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"history", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		slog.Error("error saving conversation history", "user_id", userID, "error", err)
	}
}

func (s *GormHistoryStore) defaultHistory() []Message {
	history := make([]Message, len(s.seed))
	copy(history, s.seed)
	return history
}
