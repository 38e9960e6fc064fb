package process

import (
	"context"
	"io"

	"github.com/voxnote/voxnote/internal/analyze"
	"github.com/voxnote/voxnote/internal/note"
)

type Store interface {
	CreateRecording(rec note.Recording) error
	UpdateRecording(rec note.Recording) error
	GetRecording(id string) (note.Recording, error)
	DeleteRecording(id string) error
}

type Blobs interface {
	Put(id string, data []byte) error
	Get(id string) ([]byte, error)
	Delete(id string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, apiKey string, audio []byte, model string) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, apiKey, text, model string) (analyze.Result, error)
}

type Improver interface {
	Improve(ctx context.Context, apiKey, text, model string) (string, error)
}

// Backup mirrors recordings to remote storage. All calls are
// best-effort: a failed sync never fails the operation that triggered
// it.
type Backup interface {
	SyncAudio(recordingID string, wav io.Reader) error
	SyncTranscript(recordingID, title, transcript string) error
	Remove(recordingID string) error
}

type EventBroadcaster interface {
	BroadcastRecordingCreated(rec note.Recording)
	BroadcastRecordingUpdated(rec note.Recording)
	BroadcastRecordingDeleted(id string)
}

// Settings carries the credentials and model choices a processing call
// needs. Values come from config merged with the stored settings table.
type Settings struct {
	TranscribeAPIKey string
	TranscribeModel  string
	LLMAPIKey        string
	LLMModel         string
}

// SettingsSource resolves the current Settings at call time, so edits
// made while the server runs apply to the next operation.
type SettingsSource interface {
	ProcessingSettings() (Settings, error)
}
