// Package transcribe turns a recording's audio blob into plain text
// through a remote speech-to-text provider.
package transcribe

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned before any network attempt when a
// transcription is requested without a credential.
var ErrMissingAPIKey = errors.New("api key is required")

// Client is the blob-in, text-out transcription contract.
type Client interface {
	Transcribe(ctx context.Context, apiKey string, audio []byte, model string) (string, error)
}

// APIError is a non-success provider response, carrying the raw error
// body for display to the user.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("transcription API returned %d: %s", e.StatusCode, e.Body)
}
