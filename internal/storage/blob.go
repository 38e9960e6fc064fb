package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var blobIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// BlobStore is a directory-backed key-value store for recording audio,
// addressed by recording id. Writes go through a temp file and rename so
// a crash never leaves a half-written blob behind.
type BlobStore struct {
	dir string
}

func NewBlobStore(dir string) (*BlobStore, error) {
	if dir == "" {
		dir = filepath.Join("data", "audio")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &BlobStore{dir: dir}, nil
}

func (b *BlobStore) Put(id string, data []byte) error {
	path, err := b.path(id)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write blob %s: %w", id, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize blob %s: %w", id, err)
	}
	return nil
}

func (b *BlobStore) Get(id string) ([]byte, error) {
	path, err := b.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", id, os.ErrNotExist)
		}
		return nil, fmt.Errorf("read blob %s: %w", id, err)
	}
	return data, nil
}

// Delete removes the blob for id. Deleting a missing blob is a no-op so
// a recording deletion can be retried after a partial failure.
func (b *BlobStore) Delete(id string) error {
	path, err := b.path(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", id, err)
	}
	return nil
}

func (b *BlobStore) Exists(id string) bool {
	path, err := b.path(id)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(path)
	return statErr == nil
}

func (b *BlobStore) path(id string) (string, error) {
	if !blobIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid blob id %q", id)
	}
	return filepath.Join(b.dir, id+".wav"), nil
}
