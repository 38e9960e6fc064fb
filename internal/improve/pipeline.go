// Package improve edits long transcripts in bounded windows. Remote
// completion providers cap input and output size, so the text is split
// into chunks on paragraph and sentence boundaries, each chunk is edited
// by a separate remote call, and the results are reassembled in order.
package improve

import (
	"context"
	"fmt"
	"strings"

	"github.com/voxnote/voxnote/internal/llm"
)

const systemPrompt = `You are an expert transcript editor. Rewrite the text you are given:
- Fix grammar and punctuation.
- Remove filler words and disfluencies (um, uh, like, you know, false starts).
- Reconstruct garbled or mistranscribed fragments from surrounding context.
- Drop irrelevant asides.
- Structure the result into clean paragraphs.
Preserve every piece of substantive content. Reply with the edited text only.`

// chunkTemperature keeps per-chunk edits close to deterministic.
const chunkTemperature = 0.3

type Pipeline struct {
	factory   llm.Factory
	chunkSize int
}

func New(factory llm.Factory) *Pipeline {
	return &Pipeline{factory: factory, chunkSize: DefaultChunkSize}
}

// SetChunkSize overrides the per-call character budget. Values <= 0 keep
// the default.
func (p *Pipeline) SetChunkSize(size int) {
	if size > 0 {
		p.chunkSize = size
	}
}

// Improve edits text through one remote call per chunk, strictly in
// order: the next chunk is not sent until the previous one resolves, so
// the output always reassembles in input order. Any chunk failure aborts
// the whole pipeline; no partial improved text is returned.
func (p *Pipeline) Improve(ctx context.Context, apiKey, text, model string) (string, error) {
	client, err := p.factory(apiKey, model)
	if err != nil {
		return "", err
	}

	chunks := SplitChunks(text, p.chunkSize)
	results := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		edited, err := client.Complete(ctx, []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: chunk},
		}, chunkTemperature)
		if err != nil {
			return "", fmt.Errorf("improve chunk %d/%d: %w", i+1, len(chunks), err)
		}
		results = append(results, edited)
	}

	return strings.TrimSpace(strings.Join(results, "\n\n")), nil
}
