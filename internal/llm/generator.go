package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"counsel-backend/internal/dialogue"
)

// Generator produces replies via the OpenAI chat completions API. It never
// returns an error to its caller: any failure of the underlying service is
// logged and degraded to the fixed fallback reply with zero usage, so a turn
// always completes with a deliverable message.
type Generator struct {
	model    llms.Model
	fallback string
}

func NewGenerator(apiKey, model, fallback string) (*Generator, error) {
	client, err := openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("could not create OpenAI client: %w", err)
	}
	return &Generator{model: client, fallback: fallback}, nil
}

// NewGeneratorWithModel wires an existing model, used by tests to inject
// fakes.
func NewGeneratorWithModel(model llms.Model, fallback string) *Generator {
	return &Generator{model: model, fallback: fallback}
}

func (g *Generator) Generate(ctx context.Context, history []dialogue.Message) dialogue.Reply {
	content := make([]llms.MessageContent, 0, len(history))
	for _, msg := range history {
		content = append(content, llms.TextParts(messageType(msg.Role), msg.Content))
	}

	resp, err := g.model.GenerateContent(ctx, content)
	if err != nil {
		slog.Error("error calling chat completions, substituting fallback reply", "error", err)
		return dialogue.Reply{Text: g.fallback, Fallback: true}
	}
	if len(resp.Choices) == 0 {
		slog.Error("chat completions returned no choices, substituting fallback reply")
		return dialogue.Reply{Text: g.fallback, Fallback: true}
	}

	choice := resp.Choices[0]
	return dialogue.Reply{
		Text:       choice.Content,
		TokensUsed: totalTokens(choice.GenerationInfo),
	}
}

func messageType(role string) llms.ChatMessageType {
	switch role {
	case dialogue.RoleSystem:
		return llms.ChatMessageTypeSystem
	case dialogue.RoleAgent:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func totalTokens(info map[string]any) int64 {
	switch v := info["TotalTokens"].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}
