// Package process orchestrates the recording pipeline: persisting
// captures, transcription, analysis, transcript improvement, and
// deletion. All status movement goes through note.Status.Transition and
// every write is a compare-and-swap on the recording version.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxnote/voxnote/internal/note"
)

// casRetries bounds re-reads after a lost version swap. The per-record
// lock makes in-process conflicts impossible, so this only matters when
// another writer touches the database directly.
const casRetries = 3

type Processor struct {
	store    Store
	blobs    Blobs
	stt      Transcriber
	analyzer Analyzer
	improver Improver
	hub      EventBroadcaster
	settings SettingsSource
	backup   Backup

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(store Store, blobs Blobs, stt Transcriber, analyzer Analyzer, improver Improver, hub EventBroadcaster, settings SettingsSource) *Processor {
	return &Processor{
		store:    store,
		blobs:    blobs,
		stt:      stt,
		analyzer: analyzer,
		improver: improver,
		hub:      hub,
		settings: settings,
		locks:    make(map[string]*sync.Mutex),
	}
}

// SetBackup enables remote mirroring of recordings. Syncs run in the
// background after the local write succeeds.
func (p *Processor) SetBackup(b Backup) {
	p.backup = b
}

// SaveCapture persists a finished capture: audio first into the blob
// store, then the metadata row. A failed row insert rolls the blob back
// so no orphan audio is left behind.
func (p *Processor) SaveCapture(title string, wav []byte, duration float64) (note.Recording, error) {
	rec := note.New(title, duration, time.Now())
	rec.Version = 1

	if err := p.blobs.Put(rec.ID, wav); err != nil {
		return note.Recording{}, fmt.Errorf("store audio: %w", err)
	}
	if err := p.store.CreateRecording(rec); err != nil {
		_ = p.blobs.Delete(rec.ID)
		return note.Recording{}, err
	}

	if p.hub != nil {
		p.hub.BroadcastRecordingCreated(rec)
	}
	if p.backup != nil {
		go func() {
			if err := p.backup.SyncAudio(rec.ID, bytes.NewReader(wav)); err != nil {
				slog.Warn("audio backup failed", "id", rec.ID, "error", err)
			}
		}()
	}
	return rec, nil
}

// Transcribe sends the recording's audio to the speech-to-text service
// and stores the transcript. A failure leaves the recording in an error
// status tagged with the transcribing stage, so it can be retried.
func (p *Processor) Transcribe(ctx context.Context, id string) (note.Recording, error) {
	unlock := p.lock(id)
	defer unlock()

	set, err := p.settings.ProcessingSettings()
	if err != nil {
		return note.Recording{}, fmt.Errorf("load settings: %w", err)
	}

	rec, err := p.setStatus(id, note.Status{Stage: note.StageTranscribing})
	if err != nil {
		return note.Recording{}, err
	}
	p.broadcastUpdated(rec)

	audio, err := p.blobs.Get(id)
	if err != nil {
		return p.fail(id, note.StageTranscribing, fmt.Errorf("load audio: %w", err))
	}

	text, err := p.stt.Transcribe(ctx, set.TranscribeAPIKey, audio, set.TranscribeModel)
	if err != nil {
		return p.fail(id, note.StageTranscribing, err)
	}

	rec, err = p.apply(id, func(r *note.Recording) error {
		if err := r.Status.Transition(note.Status{Stage: note.StageTranscribed}); err != nil {
			return err
		}
		r.Transcript = text
		r.Status = note.Status{Stage: note.StageTranscribed}
		return nil
	})
	if err != nil {
		return note.Recording{}, err
	}
	p.broadcastUpdated(rec)
	if p.backup != nil {
		go func(r note.Recording) {
			if err := p.backup.SyncTranscript(r.ID, r.Title, r.Transcript); err != nil {
				slog.Warn("transcript backup failed", "id", r.ID, "error", err)
			}
		}(rec)
	}
	return rec, nil
}

// Analyze runs the summary/tasks/key-points extraction over the stored
// transcript. Re-running on an already analyzed recording is allowed
// and replaces the previous result.
func (p *Processor) Analyze(ctx context.Context, id string) (note.Recording, error) {
	unlock := p.lock(id)
	defer unlock()

	set, err := p.settings.ProcessingSettings()
	if err != nil {
		return note.Recording{}, fmt.Errorf("load settings: %w", err)
	}

	rec, err := p.setStatus(id, note.Status{Stage: note.StageAnalyzing})
	if err != nil {
		return note.Recording{}, err
	}
	p.broadcastUpdated(rec)

	if rec.Transcript == "" {
		return p.fail(id, note.StageAnalyzing, errors.New("recording has no transcript"))
	}

	result, err := p.analyzer.Analyze(ctx, set.LLMAPIKey, rec.Transcript, set.LLMModel)
	if err != nil {
		return p.fail(id, note.StageAnalyzing, err)
	}

	rec, err = p.apply(id, func(r *note.Recording) error {
		if err := r.Status.Transition(note.Status{Stage: note.StageAnalyzed}); err != nil {
			return err
		}
		r.Summary = result.Summary
		r.Tasks = result.Tasks
		r.KeyPoints = result.KeyPoints
		r.Status = note.Status{Stage: note.StageAnalyzed}
		return nil
	})
	if err != nil {
		return note.Recording{}, err
	}
	p.broadcastUpdated(rec)
	return rec, nil
}

// Improve rewrites the transcript through the LLM. The improving status
// is an excursion: whatever stage the recording was in before is
// restored afterwards, on success and on failure alike, so a flaky
// improvement never loses transcription or analysis progress.
func (p *Processor) Improve(ctx context.Context, id string) (note.Recording, error) {
	unlock := p.lock(id)
	defer unlock()

	set, err := p.settings.ProcessingSettings()
	if err != nil {
		return note.Recording{}, fmt.Errorf("load settings: %w", err)
	}

	var returnTo note.Stage
	rec, err := p.apply(id, func(r *note.Recording) error {
		next := note.Improving(r.Status.Stage)
		if r.Status.Stage == note.StageError {
			// Retrying a failed improvement; the original return
			// stage is unrecoverable from the error status, so fall
			// back to the furthest stage the data supports.
			next = note.Improving(note.StageTranscribed)
			if r.Summary != "" || len(r.Tasks) > 0 || len(r.KeyPoints) > 0 {
				next = note.Improving(note.StageAnalyzed)
			}
		}
		if err := r.Status.Transition(next); err != nil {
			return err
		}
		returnTo = next.ReturnTo
		r.Status = next
		return nil
	})
	if err != nil {
		return note.Recording{}, err
	}
	p.broadcastUpdated(rec)

	if rec.Transcript == "" {
		return p.restore(id, returnTo, errors.New("recording has no transcript"))
	}

	improved, err := p.improver.Improve(ctx, set.LLMAPIKey, rec.Transcript, set.LLMModel)
	if err != nil {
		return p.restore(id, returnTo, err)
	}

	rec, err = p.apply(id, func(r *note.Recording) error {
		r.Improved = improved
		r.Status = r.Status.Restore()
		return nil
	})
	if err != nil {
		return note.Recording{}, err
	}
	p.broadcastUpdated(rec)
	return rec, nil
}

// Rename updates the recording title.
func (p *Processor) Rename(id, title string) (note.Recording, error) {
	unlock := p.lock(id)
	defer unlock()

	rec, err := p.apply(id, func(r *note.Recording) error {
		r.Title = title
		return nil
	})
	if err != nil {
		return note.Recording{}, err
	}
	p.broadcastUpdated(rec)
	return rec, nil
}

// Delete removes the metadata row first, then the audio blob. A blob
// left behind by a crash between the two is invisible to the API and
// harmless; deleting it again is a no-op.
func (p *Processor) Delete(id string) error {
	unlock := p.lock(id)
	defer unlock()

	if err := p.store.DeleteRecording(id); err != nil {
		return err
	}
	if err := p.blobs.Delete(id); err != nil {
		slog.Warn("recording deleted but audio blob removal failed", "id", id, "error", err)
	}

	if p.hub != nil {
		p.hub.BroadcastRecordingDeleted(id)
	}
	if p.backup != nil {
		go func() {
			if err := p.backup.Remove(id); err != nil {
				slog.Warn("backup removal failed", "id", id, "error", err)
			}
		}()
	}
	return nil
}

// Audio returns the stored WAV bytes for a recording.
func (p *Processor) Audio(id string) ([]byte, error) {
	return p.blobs.Get(id)
}

func (p *Processor) setStatus(id string, next note.Status) (note.Recording, error) {
	return p.apply(id, func(r *note.Recording) error {
		if err := r.Status.Transition(next); err != nil {
			return err
		}
		r.Status = next
		return nil
	})
}

// fail records an error status tagged with the stage that failed and
// returns the original error to the caller.
func (p *Processor) fail(id string, stage note.Stage, cause error) (note.Recording, error) {
	rec, err := p.apply(id, func(r *note.Recording) error {
		r.Status = note.Failed(stage)
		return nil
	})
	if err != nil {
		slog.Error("failed to record error status", "id", id, "stage", stage, "error", err)
		return note.Recording{}, cause
	}
	p.broadcastUpdated(rec)
	return rec, cause
}

// restore ends an improving excursion by putting the recording back at
// its pre-excursion stage, surfacing the improvement error.
func (p *Processor) restore(id string, returnTo note.Stage, cause error) (note.Recording, error) {
	rec, err := p.apply(id, func(r *note.Recording) error {
		if r.Status.Stage == note.StageImproving {
			r.Status = r.Status.Restore()
			return nil
		}
		r.Status = note.Status{Stage: returnTo}
		return nil
	})
	if err != nil {
		slog.Error("failed to restore status after improvement error", "id", id, "error", err)
		return note.Recording{}, cause
	}
	p.broadcastUpdated(rec)
	return rec, cause
}

// apply is the fetch-mutate-write cycle behind every update. The write
// is version-guarded; a lost swap re-reads and retries the mutation.
func (p *Processor) apply(id string, mutate func(*note.Recording) error) (note.Recording, error) {
	for attempt := 0; ; attempt++ {
		rec, err := p.store.GetRecording(id)
		if err != nil {
			return note.Recording{}, err
		}
		if err := mutate(&rec); err != nil {
			return note.Recording{}, err
		}

		err = p.store.UpdateRecording(rec)
		if err == nil {
			rec.Version++
			return rec, nil
		}
		if !errors.Is(err, note.ErrConcurrentEdit) || attempt >= casRetries {
			return note.Recording{}, err
		}
	}
}

func (p *Processor) broadcastUpdated(rec note.Recording) {
	if p.hub != nil {
		p.hub.BroadcastRecordingUpdated(rec)
	}
}

func (p *Processor) lock(id string) func() {
	p.mu.Lock()
	l, ok := p.locks[id]
	if !ok {
		l = &sync.Mutex{}
		p.locks[id] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
