package dialogue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"counsel-backend/internal/database"
)

// KnowledgeLog is the append-only store of extracted records. Rows are never
// updated or deleted; a failed append is logged and swallowed so it can never
// block reply delivery.
type KnowledgeLog interface {
	Append(ctx context.Context, userID string, rec Record)
}

type GormKnowledgeLog struct {
	db *gorm.DB
}

// NewGormKnowledgeLog creates a knowledge log backed by the knowledge_records
// table. A nil db turns every append into a no-op.
func NewGormKnowledgeLog(db *gorm.DB) *GormKnowledgeLog {
	return &GormKnowledgeLog{db: db}
}

func (l *GormKnowledgeLog) Append(ctx context.Context, userID string, rec Record) {
	if l.db == nil {
		return
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		slog.Error("error serializing extraction record", "user_id", userID, "error", err)
		return
	}

	row := database.KnowledgeRecord{
		UserID:    userID,
		Fields:    datatypes.JSON(raw),
		CreatedAt: time.Now().UTC(),
	}

	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		slog.Error("error appending knowledge record", "user_id", userID, "error", err)
	}
}
