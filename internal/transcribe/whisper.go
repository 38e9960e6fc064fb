package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.lemonfox.ai/v1/audio/transcriptions"

// WhisperClient calls a Whisper-compatible transcription endpoint that
// accepts the audio inline as a base64 data URI.
type WhisperClient struct {
	endpoint string
	language string
	http     *http.Client
}

type WhisperOption func(*WhisperClient)

// WithEndpoint overrides the transcription endpoint URL.
func WithEndpoint(url string) WhisperOption {
	return func(c *WhisperClient) {
		if url != "" {
			c.endpoint = url
		}
	}
}

// WithLanguage sets the language hint sent with every request.
func WithLanguage(lang string) WhisperOption {
	return func(c *WhisperClient) {
		c.language = lang
	}
}

func NewWhisperClient(opts ...WhisperOption) *WhisperClient {
	c := &WhisperClient{
		endpoint: defaultEndpoint,
		language: "english",
		http:     &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type whisperRequest struct {
	Model    string `json:"model"`
	File     string `json:"file"`
	Language string `json:"language,omitempty"`
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Model    string  `json:"model"`
}

// Transcribe encodes audio as a self-describing data URI and issues one
// synchronous call. A missing credential fails before any network I/O;
// a non-2xx response fails with the provider's raw error body.
func (c *WhisperClient) Transcribe(ctx context.Context, apiKey string, audio []byte, model string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrMissingAPIKey
	}

	payload, err := json.Marshal(whisperRequest{
		Model:    model,
		File:     "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(audio),
		Language: c.language,
	})
	if err != nil {
		return "", fmt.Errorf("marshal transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed whisperResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse transcription response: %w", err)
	}

	return strings.TrimSpace(parsed.Text), nil
}
