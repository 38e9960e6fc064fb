// Package gdrive backs recordings up to a Google Drive folder using a
// service account. Audio goes up as plain WAV files, transcripts as
// Google Docs, both tracked per recording so re-syncs update in place.
package gdrive

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type Syncer struct {
	service  *drive.Service
	folderID string
	fileIDs  map[string]string
	mu       sync.Mutex
}

func NewSyncer(ctx context.Context, credPath, folderID string) (*Syncer, error) {
	creds, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	config, err := google.CredentialsFromJSONWithParams(ctx, creds, google.CredentialsParams{Scopes: []string{drive.DriveFileScope}})
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(config))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Syncer{
		service:  svc,
		folderID: folderID,
		fileIDs:  make(map[string]string),
	}, nil
}

// SyncAudio uploads a recording's WAV payload, replacing the previous
// upload for the same recording if one exists.
func (s *Syncer) SyncAudio(recordingID string, wav io.Reader) error {
	return s.upload("audio:"+recordingID, &drive.File{
		Name:     fmt.Sprintf("voxnote-%s.wav", recordingID),
		MimeType: "audio/wav",
		Parents:  []string{s.folderID},
	}, wav)
}

// SyncTranscript uploads a recording's transcript as a Google Doc named
// after the recording title.
func (s *Syncer) SyncTranscript(recordingID, title, transcript string) error {
	return s.upload("transcript:"+recordingID, &drive.File{
		Name:     fmt.Sprintf("voxnote-%s", title),
		MimeType: "application/vnd.google-apps.document",
		Parents:  []string{s.folderID},
	}, strings.NewReader(transcript))
}

// Remove deletes both synced files for a recording. Missing files are
// ignored so Remove is safe after a partial sync.
func (s *Syncer) Remove(recordingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{"audio:" + recordingID, "transcript:" + recordingID} {
		fileID, ok := s.fileIDs[key]
		if !ok {
			continue
		}
		if err := s.service.Files.Delete(fileID).Do(); err != nil {
			return fmt.Errorf("drive delete: %w", err)
		}
		delete(s.fileIDs, key)
	}
	return nil
}

func (s *Syncer) upload(key string, meta *drive.File, content io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fileID, ok := s.fileIDs[key]; ok {
		if _, err := s.service.Files.Update(fileID, &drive.File{}).Media(content).Do(); err != nil {
			return fmt.Errorf("drive update: %w", err)
		}
		return nil
	}

	doc, err := s.service.Files.Create(meta).Media(content).Do()
	if err != nil {
		return fmt.Errorf("drive create: %w", err)
	}

	s.fileIDs[key] = doc.Id
	return nil
}
