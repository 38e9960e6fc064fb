// Package analyze extracts a structured summary from a transcript with
// one remote chat-completion call.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voxnote/voxnote/internal/llm"
)

const systemPrompt = `Analyze the following voice note transcript. Respond with a single JSON object and nothing else - no prose, no markdown fences. The object must have exactly these fields:
- "summary": a concise summary of the transcript, 3-5 sentences.
- "tasks": an array of action item strings (empty array if there are none).
- "keyPoints": an array of key point strings.`

// FallbackSummary substitutes for a missing or malformed summary field.
const FallbackSummary = "Summary unavailable."

// Result always has the documented shape: Tasks and KeyPoints are
// non-nil even when empty.
type Result struct {
	Summary   string   `json:"summary"`
	Tasks     []string `json:"tasks"`
	KeyPoints []string `json:"keyPoints"`
}

type Client struct {
	factory llm.Factory
}

func New(factory llm.Factory) *Client {
	return &Client{factory: factory}
}

// Analyze runs the extraction call and parses the reply. Field-level
// problems degrade to fallbacks; a reply that is not JSON at all after
// fence stripping is a terminal error, with the raw payload logged for
// diagnosis.
func (c *Client) Analyze(ctx context.Context, apiKey, text, model string) (Result, error) {
	client, err := c.factory(apiKey, model)
	if err != nil {
		return Result{}, err
	}

	raw, err := client.Complete(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: text},
	}, 0)
	if err != nil {
		return Result{}, fmt.Errorf("analysis call: %w", err)
	}

	return parseResult(raw)
}

func parseResult(raw string) (Result, error) {
	stripped := StripFences(raw)

	// Fields land in json.RawMessage first so one malformed field does
	// not poison the others.
	var fields struct {
		Summary   json.RawMessage `json:"summary"`
		Tasks     json.RawMessage `json:"tasks"`
		KeyPoints json.RawMessage `json:"keyPoints"`
	}
	if err := json.Unmarshal([]byte(stripped), &fields); err != nil {
		slog.Error("analysis response is not valid JSON", "error", err, "payload", raw)
		return Result{}, fmt.Errorf("parse analysis response: %w", err)
	}

	result := Result{
		Summary:   FallbackSummary,
		Tasks:     []string{},
		KeyPoints: []string{},
	}

	var summary string
	if err := json.Unmarshal(fields.Summary, &summary); err == nil && strings.TrimSpace(summary) != "" {
		result.Summary = summary
	}
	if list, err := stringList(fields.Tasks); err == nil {
		result.Tasks = list
	}
	if list, err := stringList(fields.KeyPoints); err == nil {
		result.KeyPoints = list
	}

	return result, nil
}

// StripFences removes markdown code-fence markers the provider may emit
// despite instructions, e.g. "```json\n{...}\n```".
func StripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		// Drop the language tag on the opening fence line.
		if tag := strings.TrimSpace(trimmed[:newline]); tag == "" || isFenceTag(tag) {
			trimmed = trimmed[newline+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func isFenceTag(tag string) bool {
	for _, r := range tag {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// stringList coerces a JSON value into a string slice: an array keeps
// its string elements (other element types are stringified), and a bare
// string becomes a single-element list.
func stringList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing field")
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			switch v := item.(type) {
			case string:
				out = append(out, v)
			default:
				out = append(out, fmt.Sprintf("%v", v))
			}
		}
		return out, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			return []string{}, nil
		}
		return []string{single}, nil
	}

	return nil, fmt.Errorf("field is neither array nor string")
}
