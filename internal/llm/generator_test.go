package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"counsel-backend/internal/dialogue"
)

type fakeChatModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
}

func (m *fakeChatModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	return m.resp, m.err
}

func (m *fakeChatModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func TestGenerateReturnsModelReplyAndUsage(t *testing.T) {
	model := &fakeChatModel{resp: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:        "どうしたの？",
			GenerationInfo: map[string]any{"TotalTokens": 42},
		}},
	}}
	gen := NewGeneratorWithModel(model, defaultFallback)

	reply := gen.Generate(context.Background(), []dialogue.Message{
		{Role: dialogue.RoleSystem, Content: "directive"},
		{Role: dialogue.RoleUser, Content: "辛い日だった"},
	})

	assert.Equal(t, "どうしたの？", reply.Text)
	assert.Equal(t, int64(42), reply.TokensUsed)
	assert.False(t, reply.Fallback)

	// Roles map onto the chat message types the API expects.
	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
}

func TestGenerateSubstitutesFallbackOnError(t *testing.T) {
	gen := NewGeneratorWithModel(&fakeChatModel{err: errors.New("quota exceeded")}, defaultFallback)

	reply := gen.Generate(context.Background(), []dialogue.Message{
		{Role: dialogue.RoleUser, Content: "こんにちは"},
	})

	assert.Equal(t, defaultFallback, reply.Text)
	assert.Equal(t, int64(0), reply.TokensUsed)
	assert.True(t, reply.Fallback)
}

func TestGenerateSubstitutesFallbackOnEmptyResponse(t *testing.T) {
	gen := NewGeneratorWithModel(&fakeChatModel{resp: &llms.ContentResponse{}}, defaultFallback)

	reply := gen.Generate(context.Background(), []dialogue.Message{
		{Role: dialogue.RoleUser, Content: "こんにちは"},
	})

	assert.Equal(t, defaultFallback, reply.Text)
	assert.True(t, reply.Fallback)
}

func TestTotalTokensHandlesNumericTypes(t *testing.T) {
	assert.Equal(t, int64(7), totalTokens(map[string]any{"TotalTokens": 7}))
	assert.Equal(t, int64(7), totalTokens(map[string]any{"TotalTokens": int64(7)}))
	assert.Equal(t, int64(7), totalTokens(map[string]any{"TotalTokens": 7.0}))
	assert.Equal(t, int64(0), totalTokens(map[string]any{}))
	assert.Equal(t, int64(0), totalTokens(nil))
}
