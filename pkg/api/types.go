package api

import "encoding/json"

type KnowledgeQuery struct {
	UserID string `schema:"user_id"`
	Limit  int    `schema:"limit"`
}

type KnowledgeRecordItem struct {
	ID        uint            `json:"id"`
	UserID    string          `json:"user_id"`
	Fields    json.RawMessage `json:"fields"`
	CreatedAt string          `json:"created_at"`
}

type KnowledgeResponse struct {
	Records []KnowledgeRecordItem `json:"records"`
}

type MessageItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ConversationResponse struct {
	UserID   string        `json:"user_id"`
	Messages []MessageItem `json:"messages"`
}
