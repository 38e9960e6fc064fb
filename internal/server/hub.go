package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/voxnote/voxnote/internal/note"
)

type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) BroadcastRecordingCreated(rec note.Recording) {
	h.broadcastEvent(RecordingCreatedEvent{
		Event:     newEvent("recording_created", time.Now().UTC()),
		Recording: rec,
	})
}

func (h *Hub) BroadcastRecordingUpdated(rec note.Recording) {
	h.broadcastEvent(RecordingUpdatedEvent{
		Event:     newEvent("recording_updated", time.Now().UTC()),
		Recording: rec,
	})
}

func (h *Hub) BroadcastRecordingDeleted(id string) {
	h.broadcastEvent(RecordingDeletedEvent{
		Event:       newEvent("recording_deleted", time.Now().UTC()),
		RecordingID: id,
	})
}

func (h *Hub) BroadcastCaptureStarted(mode string, warnings []string) {
	if warnings == nil {
		warnings = []string{}
	}
	h.broadcastEvent(CaptureStartedEvent{
		Event:    newEvent("capture_started", time.Now().UTC()),
		Mode:     mode,
		Warnings: warnings,
	})
}

func (h *Hub) BroadcastCaptureStopped(recordingID string, duration float64) {
	h.broadcastEvent(CaptureStoppedEvent{
		Event:       newEvent("capture_stopped", time.Now().UTC()),
		RecordingID: recordingID,
		Duration:    duration,
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.Broadcast(payload)
}
