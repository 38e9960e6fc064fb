package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/voxnote/voxnote/internal/capture"
	"github.com/voxnote/voxnote/internal/export"
	"github.com/voxnote/voxnote/internal/note"
)

var recordingIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// maxImportBytes caps uploaded WAV files at 200 MB, roughly three hours
// of 16 kHz mono PCM.
const maxImportBytes = 200 << 20

type RecordingStore interface {
	ListRecordings() ([]note.Recording, error)
	GetRecording(id string) (note.Recording, error)
}

type Pipeline interface {
	SaveCapture(title string, wav []byte, duration float64) (note.Recording, error)
	Transcribe(ctx context.Context, id string) (note.Recording, error)
	Analyze(ctx context.Context, id string) (note.Recording, error)
	Improve(ctx context.Context, id string) (note.Recording, error)
	Rename(id, title string) (note.Recording, error)
	Delete(id string) error
	Audio(id string) ([]byte, error)
}

type Capturer interface {
	Start(mode capture.Mode) ([]string, error)
	Stop() (capture.Result, error)
	Cancel() error
	Active() (bool, float64)
}

type SettingsStore interface {
	GetSetting(key string) (string, error)
	PutSetting(key, value string) error
}

func registerAPIRoutes(mux *http.ServeMux, store RecordingStore, pipeline Pipeline, capturer Capturer, settings SettingsStore, defaults map[string]string, hub *Hub) {
	mux.HandleFunc("GET /api/recordings", func(w http.ResponseWriter, r *http.Request) {
		recordings, err := store.ListRecordings()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list recordings: %v", err))
			return
		}
		if recordings == nil {
			recordings = []note.Recording{}
		}
		writeJSON(w, http.StatusOK, recordings)
	})

	mux.HandleFunc("POST /api/recordings", func(w http.ResponseWriter, r *http.Request) {
		wav, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes+1))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
			return
		}
		if len(wav) > maxImportBytes {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}

		duration, err := capture.DurationOf(wav)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid audio: %v", err))
			return
		}

		rec, err := pipeline.SaveCapture(r.URL.Query().Get("title"), wav, duration)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("save recording: %v", err))
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	})

	mux.HandleFunc("GET /api/recordings/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordingID(w, r)
		if !ok {
			return
		}
		rec, err := store.GetRecording(id)
		if err != nil {
			writeRecordingError(w, "get recording", err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	mux.HandleFunc("PATCH /api/recordings/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordingID(w, r)
		if !ok {
			return
		}

		var body struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode body: %v", err))
			return
		}
		if strings.TrimSpace(body.Title) == "" {
			writeJSONError(w, http.StatusBadRequest, "title is required")
			return
		}

		rec, err := pipeline.Rename(id, body.Title)
		if err != nil {
			writeRecordingError(w, "rename recording", err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	mux.HandleFunc("DELETE /api/recordings/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordingID(w, r)
		if !ok {
			return
		}
		if err := pipeline.Delete(id); err != nil {
			writeRecordingError(w, "delete recording", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/recordings/{id}/audio", func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordingID(w, r)
		if !ok {
			return
		}
		rec, err := store.GetRecording(id)
		if err != nil {
			writeRecordingError(w, "get recording", err)
			return
		}

		wav, err := pipeline.Audio(id)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "audio not available")
			return
		}

		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Type", "audio/wav")
		http.ServeContent(w, r, rec.ID+".wav", rec.CreatedAt, bytes.NewReader(wav))
	})

	mux.HandleFunc("POST /api/recordings/{id}/transcribe", func(w http.ResponseWriter, r *http.Request) {
		runPipelineOp(w, r, "transcribe", pipeline.Transcribe)
	})

	mux.HandleFunc("POST /api/recordings/{id}/analyze", func(w http.ResponseWriter, r *http.Request) {
		runPipelineOp(w, r, "analyze", pipeline.Analyze)
	})

	mux.HandleFunc("POST /api/recordings/{id}/improve", func(w http.ResponseWriter, r *http.Request) {
		runPipelineOp(w, r, "improve", pipeline.Improve)
	})

	mux.HandleFunc("GET /api/recordings/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordingID(w, r)
		if !ok {
			return
		}
		rec, err := store.GetRecording(id)
		if err != nil {
			writeRecordingError(w, "get recording", err)
			return
		}

		doc := export.Document(r.URL.Query().Get("doc"))
		text, ok := documentText(rec, doc)
		if !ok {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown document %q", doc))
			return
		}
		if strings.TrimSpace(text) == "" {
			writeJSONError(w, http.StatusNotFound, fmt.Sprintf("recording has no %s", doc))
			return
		}

		format := export.Format(r.URL.Query().Get("format"))
		if format == "" {
			format = export.FormatText
		}
		file, err := export.Render(rec.Title, doc, format, text)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		w.Header().Set("Content-Type", file.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(file.Data)
	})

	registerCaptureRoutes(mux, pipeline, capturer, hub)
	registerSettingsRoutes(mux, settings, defaults)
}

func registerCaptureRoutes(mux *http.ServeMux, pipeline Pipeline, capturer Capturer, hub *Hub) {
	mux.HandleFunc("POST /api/capture/start", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Mode string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode body: %v", err))
			return
		}

		mode := capture.Mode(body.Mode)
		if mode == "" {
			mode = capture.ModeSolo
		}
		if mode != capture.ModeSolo && mode != capture.ModeMixed {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown capture mode %q", mode))
			return
		}

		warnings, err := capturer.Start(mode)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, capture.ErrSessionActive) {
				status = http.StatusConflict
			}
			writeJSONError(w, status, fmt.Sprintf("start capture: %v", err))
			return
		}
		if warnings == nil {
			warnings = []string{}
		}

		if hub != nil {
			hub.BroadcastCaptureStarted(string(mode), warnings)
		}
		writeJSON(w, http.StatusOK, map[string]any{"mode": string(mode), "warnings": warnings})
	})

	mux.HandleFunc("POST /api/capture/stop", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode body: %v", err))
			return
		}

		result, err := capturer.Stop()
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, capture.ErrNoActiveSession) {
				status = http.StatusConflict
			}
			writeJSONError(w, status, fmt.Sprintf("stop capture: %v", err))
			return
		}

		rec, err := pipeline.SaveCapture(body.Title, result.WAV, result.Duration)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("save recording: %v", err))
			return
		}

		if hub != nil {
			hub.BroadcastCaptureStopped(rec.ID, rec.Duration)
		}
		writeJSON(w, http.StatusCreated, rec)
	})

	mux.HandleFunc("POST /api/capture/cancel", func(w http.ResponseWriter, r *http.Request) {
		if err := capturer.Cancel(); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, capture.ErrNoActiveSession) {
				status = http.StatusConflict
			}
			writeJSONError(w, status, fmt.Sprintf("cancel capture: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/capture/status", func(w http.ResponseWriter, r *http.Request) {
		active, seconds := capturer.Active()
		writeJSON(w, http.StatusOK, map[string]any{"active": active, "seconds": seconds})
	})
}

func runPipelineOp(w http.ResponseWriter, r *http.Request, name string, op func(ctx context.Context, id string) (note.Recording, error)) {
	id, ok := recordingID(w, r)
	if !ok {
		return
	}

	rec, err := op(r.Context(), id)
	if err != nil {
		var bad note.ErrBadTransition
		switch {
		case errors.As(err, &bad):
			writeJSONError(w, http.StatusConflict, err.Error())
		case errors.Is(err, note.ErrNotFound):
			writeJSONError(w, http.StatusNotFound, fmt.Sprintf("%s: %v", name, err))
		default:
			writeJSONError(w, http.StatusBadGateway, fmt.Sprintf("%s: %v", name, err))
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func documentText(rec note.Recording, doc export.Document) (string, bool) {
	switch doc {
	case export.DocTranscript:
		return rec.Transcript, true
	case export.DocImproved:
		return rec.Improved, true
	case export.DocSummary:
		return rec.Summary, true
	}
	return "", false
}

func recordingID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if !recordingIDPattern.MatchString(id) {
		writeJSONError(w, http.StatusForbidden, "invalid recording id")
		return "", false
	}
	return id, true
}

func writeRecordingError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, note.ErrNotFound) {
		status = http.StatusNotFound
	}
	if errors.Is(err, note.ErrConcurrentEdit) {
		status = http.StatusConflict
	}
	writeJSONError(w, status, fmt.Sprintf("%s: %v", op, err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
