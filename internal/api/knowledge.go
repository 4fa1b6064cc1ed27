package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"counsel-backend/internal/database"
	pkgapi "counsel-backend/pkg/api"
)

const defaultKnowledgeLimit = 50

// KnowledgeService exposes read-only operational endpoints over the two
// stores. It is only mounted when persistence is configured.
type KnowledgeService struct {
	db *gorm.DB
}

func NewKnowledgeService(db *gorm.DB) *KnowledgeService {
	return &KnowledgeService{db: db}
}

func (s *KnowledgeService) AddRoutes(r chi.Router) {
	r.Get("/knowledge", RestHandler(s.GetKnowledge))
	r.Get("/conversations/{user_id}", RestHandler(s.GetConversation))
}

func (s *KnowledgeService) GetKnowledge(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[pkgapi.KnowledgeQuery](r)
	if err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultKnowledgeLimit
	}

	tx := s.db.WithContext(r.Context()).Order("id ASC").Limit(limit)
	if query.UserID != "" {
		tx = tx.Where("user_id = ?", query.UserID)
	}

	var rows []database.KnowledgeRecord
	if err := tx.Find(&rows).Error; err != nil {
		slog.Error("error listing knowledge records", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving knowledge records")
	}

	resp := pkgapi.KnowledgeResponse{Records: make([]pkgapi.KnowledgeRecordItem, 0, len(rows))}
	for _, row := range rows {
		resp.Records = append(resp.Records, pkgapi.KnowledgeRecordItem{
			ID:        row.ID,
			UserID:    row.UserID,
			Fields:    json.RawMessage(row.Fields),
			CreatedAt: row.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return resp, nil
}

func (s *KnowledgeService) GetConversation(r *http.Request) (any, error) {
	userID, err := URLParamString(r, "user_id")
	if err != nil {
		return nil, err
	}

	var row database.Conversation
	if err := s.db.WithContext(r.Context()).First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "conversation not found")
		}
		slog.Error("error getting conversation", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving conversation record")
	}

	var messages []pkgapi.MessageItem
	if err := json.Unmarshal(row.History, &messages); err != nil {
		slog.Error("corrupt conversation history", "user_id", userID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error decoding conversation record")
	}

	return pkgapi.ConversationResponse{UserID: userID, Messages: messages}, nil
}
