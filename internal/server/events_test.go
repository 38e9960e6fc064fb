package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/voxnote/voxnote/internal/note"
)

func TestHubBroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe()
	b := hub.Subscribe()
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	hub.BroadcastRecordingDeleted("r9")

	for _, ch := range []chan []byte{a, b} {
		select {
		case msg := <-ch:
			var event RecordingDeletedEvent
			if err := json.Unmarshal(msg, &event); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if event.Type != "recording_deleted" || event.RecordingID != "r9" {
				t.Fatalf("unexpected event: %+v", event)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	// Fill the buffer; further broadcasts must not block.
	for i := 0; i < 100; i++ {
		hub.BroadcastCaptureStarted("solo", nil)
	}
}

func TestEventTimestampFormat(t *testing.T) {
	now := time.Date(2026, 2, 26, 12, 30, 0, 0, time.UTC)
	e := newEvent("recording_created", now)
	if e.Version != EventVersion {
		t.Fatalf("version = %d", e.Version)
	}
	if _, err := time.Parse(time.RFC3339Nano, e.Timestamp); err != nil {
		t.Fatalf("timestamp %q: %v", e.Timestamp, err)
	}
}

func TestRecordingEventCarriesStatus(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	hub.BroadcastRecordingUpdated(note.Recording{
		ID:     "r1",
		Status: note.Improving(note.StageAnalyzed),
	})

	msg := <-ch
	var event struct {
		Recording struct {
			Status note.Status `json:"status"`
		} `json:"recording"`
	}
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Recording.Status.Stage != note.StageImproving || event.Recording.Status.ReturnTo != note.StageAnalyzed {
		t.Fatalf("status = %+v", event.Recording.Status)
	}
}
