package dialogue

const (
	RoleSystem = "system"
	RoleUser   = "user"
	RoleAgent  = "agent"
)

// Message is one entry in a user's conversation history. The ordered
// sequence of messages is the literal payload sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Record is one structured-fact entry extracted from a single exchange.
// Unset fields stay nil and serialize as explicit JSON nulls.
type Record struct {
	Time         *string `json:"time"`
	Place        *string `json:"place"`
	Person       *string `json:"person"`
	Emotion      *string `json:"emotion"`
	StressFactor *string `json:"stress_factor"`
}

// Reply is the tagged result of a generation attempt. Fallback is true when
// the underlying service failed and Text carries the fixed apology instead.
type Reply struct {
	Text       string
	TokensUsed int64
	Fallback   bool
}
