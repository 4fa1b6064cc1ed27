// Package line implements the pieces of the LINE Messaging API this service
// touches: webhook payload parsing, request signature validation, and the
// reply/push client.
package line

// WebhookRequest is the body LINE posts to the callback endpoint.
type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

type Event struct {
	Type       string       `json:"type"`
	ReplyToken string       `json:"replyToken"`
	Source     Source       `json:"source"`
	Message    EventMessage `json:"message"`
	Timestamp  int64        `json:"timestamp"`
}

type Source struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type EventMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// IsTextMessage reports whether the event is a user text message, the only
// kind this service processes.
func (e Event) IsTextMessage() bool {
	return e.Type == "message" && e.Message.Type == "text"
}
