package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"counsel-backend/internal/dialogue"
)

const extractionTimeout = 30 * time.Second

// Extractor runs the second pass over each exchange: a single constrained
// chat completion that must return the five-key record object. It reports
// failure through its boolean return instead of an error; on transport
// failure, non-parseable output, or a schema violation no record is produced
// and the turn is otherwise unaffected.
type Extractor struct {
	client    openai.Client
	model     string
	directive string
}

func NewExtractor(apiKey, model, directive string) *Extractor {
	return &Extractor{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		directive: directive,
	}
}

func (e *Extractor) Extract(ctx context.Context, utterance, reply string) (dialogue.Record, bool) {
	ctx, cancel := context.WithTimeout(ctx, extractionTimeout)
	defer cancel()

	var transcript strings.Builder
	transcript.WriteString("user: " + utterance + "\n")
	transcript.WriteString("agent: " + reply + "\n")

	res, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(e.directive),
			openai.UserMessage(transcript.String()),
		},
		ResponseFormat: recordResponseFormat(),
	})
	if err != nil {
		slog.Error("error calling extraction completion, skipping record", "error", err)
		return dialogue.Record{}, false
	}
	if len(res.Choices) == 0 {
		slog.Error("extraction completion returned no choices, skipping record")
		return dialogue.Record{}, false
	}

	rec, err := parseRecord(res.Choices[0].Message.Content)
	if err != nil {
		slog.Error("malformed extraction output, skipping record", "error", err)
		return dialogue.Record{}, false
	}
	return rec, true
}

// parseRecord decodes the model output into a Record. Anything other than a
// single JSON object with the five fixed keys (each a string or null) is a
// schema violation.
func parseRecord(raw string) (dialogue.Record, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return dialogue.Record{}, fmt.Errorf("extraction output is not a JSON object")
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var rec dialogue.Record
	if err := dec.Decode(&rec); err != nil {
		return dialogue.Record{}, fmt.Errorf("error decoding extraction output: %w", err)
	}
	if dec.More() {
		return dialogue.Record{}, fmt.Errorf("trailing data after extraction object")
	}
	return rec, nil
}

func recordResponseFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	nullableString := map[string]any{"type": []string{"string", "null"}}

	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        "dialogue_record",
				Description: openai.String("Structured facts extracted from one exchange"),
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"time":          nullableString,
						"place":         nullableString,
						"person":        nullableString,
						"emotion":       nullableString,
						"stress_factor": nullableString,
					},
					"required":             []string{"time", "place", "person", "emotion", "stress_factor"},
					"additionalProperties": false,
				},
			},
		},
	}
}
