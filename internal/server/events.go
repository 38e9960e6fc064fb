package server

import (
	"time"

	"github.com/voxnote/voxnote/internal/note"
)

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type RecordingCreatedEvent struct {
	Event
	Recording note.Recording `json:"recording"`
}

type RecordingUpdatedEvent struct {
	Event
	Recording note.Recording `json:"recording"`
}

type RecordingDeletedEvent struct {
	Event
	RecordingID string `json:"recording_id"`
}

type CaptureStartedEvent struct {
	Event
	Mode     string   `json:"mode"`
	Warnings []string `json:"warnings"`
}

type CaptureStoppedEvent struct {
	Event
	RecordingID string  `json:"recording_id"`
	Duration    float64 `json:"duration"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
