package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"counsel-backend/internal/line"
)

// Responder runs one conversation turn and returns the reply text to
// deliver. It must always return a deliverable reply.
type Responder interface {
	Respond(ctx context.Context, userID, utterance string) string
}

// ReplySender delivers a reply text against a webhook event's reply token.
type ReplySender interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// WebhookService receives LINE webhook deliveries, verifies their signature
// against the raw body, and runs one orchestrator turn per text-message
// event.
type WebhookService struct {
	responder     Responder
	sender        ReplySender
	channelSecret string
}

func NewWebhookService(responder Responder, sender ReplySender, channelSecret string) *WebhookService {
	return &WebhookService{
		responder:     responder,
		sender:        sender,
		channelSecret: channelSecret,
	}
}

func (s *WebhookService) AddRoutes(r chi.Router) {
	r.Post("/callback", s.HandleCallback)
}

// HandleCallback answers 400 on a bad signature and 200 otherwise; LINE
// retries deliveries that don't get a 2xx, so per-event processing failures
// are logged rather than surfaced.
func (s *WebhookService) HandleCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("error reading webhook body", "error", err)
		http.Error(w, "unable to read request body", http.StatusBadRequest)
		return
	}

	if !line.ValidateSignature(s.channelSecret, body, r.Header.Get("X-Line-Signature")) {
		slog.Warn("webhook delivery with invalid signature rejected")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var req line.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		slog.Error("error parsing webhook body", "error", err)
		http.Error(w, "unable to parse request body", http.StatusBadRequest)
		return
	}

	for _, event := range req.Events {
		if !event.IsTextMessage() || event.Source.UserID == "" {
			continue
		}

		reply := s.responder.Respond(r.Context(), event.Source.UserID, event.Message.Text)

		if err := s.sender.Reply(r.Context(), event.ReplyToken, reply); err != nil {
			slog.Error("error delivering reply", "error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
