package main

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/voxnote/voxnote/internal/analyze"
	"github.com/voxnote/voxnote/internal/capture"
	"github.com/voxnote/voxnote/internal/config"
	"github.com/voxnote/voxnote/internal/gdrive"
	"github.com/voxnote/voxnote/internal/improve"
	"github.com/voxnote/voxnote/internal/llm"
	"github.com/voxnote/voxnote/internal/process"
	"github.com/voxnote/voxnote/internal/server"
	"github.com/voxnote/voxnote/internal/storage"
	"github.com/voxnote/voxnote/internal/transcribe"
)

//go:embed static/*
var staticFiles embed.FS

// settingsResolver merges config defaults with the user-editable
// settings table. Environment credentials take precedence over a
// stored api_key.
type settingsResolver struct {
	cfg   config.Config
	store *storage.SQLiteStore
}

func (r settingsResolver) ProcessingSettings() (process.Settings, error) {
	set := process.Settings{
		TranscribeAPIKey: r.cfg.TranscribeAPIKey,
		TranscribeModel:  r.cfg.TranscribeModel,
		LLMAPIKey:        r.cfg.LLMAPIKey,
		LLMModel:         r.cfg.LLMModel,
	}

	if v, err := r.store.GetSetting("transcribe_model"); err != nil {
		return process.Settings{}, err
	} else if v != "" {
		set.TranscribeModel = v
	}
	if v, err := r.store.GetSetting("llm_model"); err != nil {
		return process.Settings{}, err
	} else if v != "" {
		set.LLMModel = v
	}

	// A stored api_key fills in for either credential the environment
	// did not provide.
	if set.TranscribeAPIKey == "" || set.LLMAPIKey == "" {
		v, err := r.store.GetSetting("api_key")
		if err != nil {
			return process.Settings{}, err
		}
		if set.TranscribeAPIKey == "" {
			set.TranscribeAPIKey = v
		}
		if set.LLMAPIKey == "" {
			set.LLMAPIKey = v
		}
	}
	return set, nil
}

func main() {
	log.Println("voxnote: starting")

	configPath := os.Getenv(config.EnvPrefix + "CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	for _, w := range warnings {
		log.Printf("warning: %s", w)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	blobs, err := storage.NewBlobStore(cfg.AudioDir)
	if err != nil {
		log.Fatalf("audio store init failed: %v", err)
	}

	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("static assets init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stt process.Transcriber
	switch cfg.TranscribeProvider {
	case "deepgram":
		stt = transcribe.NewDeepgramClient(cfg.Language)
	default:
		var opts []transcribe.WhisperOption
		if cfg.TranscribeEndpoint != "" {
			opts = append(opts, transcribe.WithEndpoint(cfg.TranscribeEndpoint))
		}
		if cfg.Language != "" {
			opts = append(opts, transcribe.WithLanguage(cfg.Language))
		}
		stt = transcribe.NewWhisperClient(opts...)
	}

	var llmOpts []llm.Option
	if cfg.LLMBaseURL != "" {
		llmOpts = append(llmOpts, llm.WithBaseURL(cfg.LLMBaseURL))
	}
	factory := llm.NewFactory(llmOpts...)

	analyzer := analyze.New(factory)
	improver := improve.New(factory)
	if cfg.ChunkSize > 0 {
		improver.SetChunkSize(cfg.ChunkSize)
	}
	if v, err := store.GetSetting("chunk_size"); err == nil && v != "" {
		if size, err := strconv.Atoi(v); err == nil && size > 0 {
			improver.SetChunkSize(size)
		}
	}

	chunkSize := improve.DefaultChunkSize
	if cfg.ChunkSize > 0 {
		chunkSize = cfg.ChunkSize
	}

	hub := server.NewHub()
	resolver := settingsResolver{cfg: cfg, store: store}
	processor := process.New(store, blobs, stt, analyzer, improver, hub, resolver)

	if cfg.GDriveFolderID != "" {
		syncer, syncErr := gdrive.NewSyncer(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
		if syncErr != nil {
			log.Printf("warning: gdrive backup disabled: %v", syncErr)
		} else {
			processor.SetBackup(syncer)
		}
	}

	engine := capture.NewEngine(capture.DeviceOpener(cfg.SystemDevice), cfg.SampleRate)
	engine.SetAutoStopHandler(func(result capture.Result) {
		rec, err := processor.SaveCapture("", result.WAV, result.Duration)
		if err != nil {
			log.Printf("auto-finalized capture could not be saved: %v", err)
			return
		}
		log.Printf("capture auto-finalized as recording %s after source failure", rec.ID)
		hub.BroadcastCaptureStopped(rec.ID, rec.Duration)
	})

	handler := server.Handler(assets, server.Deps{
		Store:    store,
		Pipeline: processor,
		Capturer: engine,
		Settings: store,
		Defaults: map[string]string{
			"transcribe_model": cfg.TranscribeModel,
			"llm_model":        cfg.LLMModel,
			"language":         cfg.Language,
			"chunk_size":       strconv.Itoa(chunkSize),
			"system_device":    cfg.SystemDevice,
		},
		Hub: hub,
	})

	httpServer := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	log.Printf("voxnote: web UI on http://%s", cfg.Addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("voxnote: shutting down")
	cancel()

	// A capture in flight is saved rather than discarded.
	if active, _ := engine.Active(); active {
		result, err := engine.Stop()
		if err != nil {
			log.Printf("warning: stop capture failed: %v", err)
		} else if rec, err := processor.SaveCapture("", result.WAV, result.Duration); err != nil {
			log.Printf("warning: save capture failed: %v", err)
		} else {
			log.Printf("in-flight capture saved as recording %s", rec.ID)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: http shutdown failed: %v", err)
	}
}
