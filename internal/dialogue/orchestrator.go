package dialogue

import (
	"context"
	"log/slog"
	"slices"
)

// maxWindow caps the history length at one directive plus ten dialogue
// messages. When an appended user turn pushes the history past the cap, the
// oldest user/agent pair after the directive is dropped.
const maxWindow = 11

// Generator produces the agent's next reply from the full ordered context.
// Implementations must not fail: on any service error they return the fixed
// fallback reply with Fallback set.
type Generator interface {
	Generate(ctx context.Context, history []Message) Reply
}

// Extractor turns one exchange into a structured record. The second return
// is false when extraction failed for any reason and no record should be
// appended.
type Extractor interface {
	Extract(ctx context.Context, utterance, reply string) (Record, bool)
}

// Orchestrator runs one conversation turn end to end: load, append, trim,
// generate, persist, extract, append to the knowledge log.
type Orchestrator struct {
	history   HistoryStore
	knowledge KnowledgeLog
	generator Generator
	extractor Extractor
	directive string
}

func NewOrchestrator(history HistoryStore, knowledge KnowledgeLog, generator Generator, extractor Extractor, directive string) *Orchestrator {
	return &Orchestrator{
		history:   history,
		knowledge: knowledge,
		generator: generator,
		extractor: extractor,
		directive: directive,
	}
}

// Respond processes one inbound utterance and returns the reply text to
// deliver. The returned text is always usable: generation failures surface as
// the fixed fallback reply, and extraction or persistence failures never
// affect it.
//
// Concurrent turns for the same user are not serialized; if two webhooks for
// one user race, the last Save wins.
func (o *Orchestrator) Respond(ctx context.Context, userID, utterance string) string {
	history := o.history.Load(ctx, userID)

	history = append(history, Message{Role: RoleUser, Content: utterance})
	history = trimWindow(history)

	reply := o.generator.Generate(ctx, o.withDirective(history))

	history = append(history, Message{Role: RoleAgent, Content: reply.Text})
	o.history.Save(ctx, userID, history)

	if rec, ok := o.extractor.Extract(ctx, utterance, reply.Text); ok {
		o.knowledge.Append(ctx, userID, rec)
	}

	slog.Info("turn completed",
		"user_id", shortID(userID),
		"history_len", len(history),
		"tokens", reply.TokensUsed,
		"fallback", reply.Fallback)

	return reply.Text
}

// trimWindow applies the single-pass trimming policy: when the history
// exceeds the cap, the two entries at indices 1 and 2 (the oldest pair after
// the directive) are removed. It runs once per turn, not to convergence.
func trimWindow(history []Message) []Message {
	if len(history) > maxWindow {
		history = slices.Delete(history, 1, 3)
	}
	return history
}

// withDirective returns the payload to send for generation, guaranteeing
// exactly one leading system message. Histories seeded with the directive
// pass through untouched; empty-default histories get it prepended here
// without it ever being persisted.
func (o *Orchestrator) withDirective(history []Message) []Message {
	if len(history) > 0 && history[0].Role == RoleSystem {
		return history
	}
	payload := make([]Message, 0, len(history)+1)
	payload = append(payload, Message{Role: RoleSystem, Content: o.directive})
	return append(payload, history...)
}

func shortID(userID string) string {
	if len(userID) > 5 {
		return userID[:5] + "..."
	}
	return userID
}
