package note

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Recording is the metadata record for one voice note. The binary audio
// payload is never embedded here; it lives in the blob store under the
// same ID.
type Recording struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	Duration   float64   `json:"duration"`
	Status     Status    `json:"status"`
	Transcript string    `json:"transcript,omitempty"`
	Improved   string    `json:"improved,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Tasks      []string  `json:"tasks,omitempty"`
	KeyPoints  []string  `json:"key_points,omitempty"`

	// Version is bumped on every write; status-changing updates are
	// compare-and-swap on this counter.
	Version int64 `json:"version"`
}

// New creates a freshly captured recording with a generated ID.
func New(title string, duration float64, now time.Time) Recording {
	if strings.TrimSpace(title) == "" {
		title = "Recording " + now.Format("2006-01-02 15:04")
	}
	return Recording{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now.UTC(),
		Duration:  duration,
		Status:    Status{Stage: StageRecorded},
	}
}
