package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	prerecorded "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

// DeepgramClient transcribes finished recordings through the Deepgram
// prerecorded REST API, as an alternative to the Whisper-style endpoint.
type DeepgramClient struct {
	language string
}

func NewDeepgramClient(language string) *DeepgramClient {
	if language == "" {
		language = "en"
	}
	return &DeepgramClient{language: language}
}

func (c *DeepgramClient) Transcribe(ctx context.Context, apiKey string, audio []byte, model string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrMissingAPIKey
	}
	if model == "" {
		model = "nova-2"
	}

	rest := client.NewREST(apiKey, &interfaces.ClientOptions{})
	dg := prerecorded.New(rest)

	resp, err := dg.FromStream(ctx, bytes.NewReader(audio), &interfaces.PreRecordedTranscriptionOptions{
		Model:       model,
		Language:    c.language,
		Punctuate:   true,
		SmartFormat: true,
	})
	if err != nil {
		return "", fmt.Errorf("deepgram transcription: %w", err)
	}

	if resp == nil || len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
		return "", fmt.Errorf("deepgram transcription: empty result")
	}

	return strings.TrimSpace(resp.Results.Channels[0].Alternatives[0].Transcript), nil
}
