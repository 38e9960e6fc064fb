package improve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/voxnote/voxnote/internal/llm"
)

type scriptedClient struct {
	calls    int
	failOn   int
	received []string
	temps    []float32
}

func (c *scriptedClient) Complete(_ context.Context, messages []llm.Message, temperature float32) (string, error) {
	c.calls++
	c.temps = append(c.temps, temperature)
	c.received = append(c.received, messages[len(messages)-1].Content)
	if c.failOn > 0 && c.calls == c.failOn {
		return "", errors.New("provider unavailable")
	}
	return "edited-" + strings.SplitN(messages[len(messages)-1].Content, " ", 2)[0], nil
}

func factoryFor(client llm.Client) llm.Factory {
	return func(apiKey, model string) (llm.Client, error) {
		if strings.TrimSpace(apiKey) == "" {
			return nil, llm.ErrMissingAPIKey
		}
		return client, nil
	}
}

func TestImproveSequentialOrder(t *testing.T) {
	client := &scriptedClient{}
	p := New(factoryFor(client))
	p.SetChunkSize(40)

	text := "alpha " + strings.Repeat("x", 30) + "\nbravo " + strings.Repeat("y", 30) + "\ncharlie " + strings.Repeat("z", 30)

	got, err := p.Improve(context.Background(), "key", text, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Improve failed: %v", err)
	}

	if client.calls != 3 {
		t.Fatalf("expected 3 chunk calls, got %d", client.calls)
	}
	if got != "edited-alpha\n\nedited-bravo\n\nedited-charlie" {
		t.Fatalf("unexpected output: %q", got)
	}
	for i, prefix := range []string{"alpha", "bravo", "charlie"} {
		if !strings.HasPrefix(client.received[i], prefix) {
			t.Fatalf("chunks sent out of order: %#v", client.received)
		}
	}
	for _, temp := range client.temps {
		if temp != 0.3 {
			t.Fatalf("expected temperature 0.3, got %v", temp)
		}
	}
}

func TestImproveSingleChunkPassthrough(t *testing.T) {
	client := &scriptedClient{}
	p := New(factoryFor(client))

	_, err := p.Improve(context.Background(), "key", "short transcript", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Improve failed: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected a single call for short text, got %d", client.calls)
	}
	if client.received[0] != "short transcript" {
		t.Fatalf("expected full text in single chunk, got %q", client.received[0])
	}
}

func TestImproveChunkFailureAbortsWhole(t *testing.T) {
	client := &scriptedClient{failOn: 2}
	p := New(factoryFor(client))
	p.SetChunkSize(40)

	text := "alpha " + strings.Repeat("x", 30) + "\nbravo " + strings.Repeat("y", 30) + "\ncharlie " + strings.Repeat("z", 30)

	got, err := p.Improve(context.Background(), "key", text, "gpt-4o-mini")
	if err == nil {
		t.Fatal("expected pipeline failure")
	}
	if got != "" {
		t.Fatalf("expected no partial improved text, got %q", got)
	}
	if client.calls != 2 {
		t.Fatalf("expected pipeline to stop at failing chunk, got %d calls", client.calls)
	}
	if !strings.Contains(err.Error(), "chunk 2/3") {
		t.Fatalf("expected chunk position in error, got %v", err)
	}
}

func TestImproveMissingAPIKey(t *testing.T) {
	client := &scriptedClient{}
	p := New(factoryFor(client))

	_, err := p.Improve(context.Background(), "", "some text", "gpt-4o-mini")
	if !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("expected no calls without credential, got %d", client.calls)
	}
}
