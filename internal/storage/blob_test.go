package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestBlobStore(t *testing.T) *BlobStore {
	t.Helper()

	blobs, err := NewBlobStore(filepath.Join(t.TempDir(), "audio"))
	if err != nil {
		t.Fatalf("NewBlobStore failed: %v", err)
	}
	return blobs
}

func TestBlobPutGet(t *testing.T) {
	blobs := newTestBlobStore(t)

	data := []byte{0x52, 0x49, 0x46, 0x46, 0x00}
	if err := blobs.Put("rec-1", data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := blobs.Get("rec-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("expected %v, got %v", data, got)
	}
	if !blobs.Exists("rec-1") {
		t.Fatal("expected Exists to report true")
	}
}

func TestBlobGetMissing(t *testing.T) {
	blobs := newTestBlobStore(t)

	_, err := blobs.Get("missing")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestBlobDeleteMissingIsNoOp(t *testing.T) {
	blobs := newTestBlobStore(t)

	if err := blobs.Delete("missing"); err != nil {
		t.Fatalf("expected no-op delete, got %v", err)
	}
}

func TestBlobRejectsBadID(t *testing.T) {
	blobs := newTestBlobStore(t)

	if err := blobs.Put("../escape", []byte("x")); err == nil {
		t.Fatal("expected invalid id error")
	}
	if blobs.Exists("../escape") {
		t.Fatal("expected Exists false for invalid id")
	}
}

func TestBlobPutOverwrites(t *testing.T) {
	blobs := newTestBlobStore(t)

	if err := blobs.Put("rec-1", []byte("first")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := blobs.Put("rec-1", []byte("second")); err != nil {
		t.Fatalf("overwrite Put failed: %v", err)
	}

	got, err := blobs.Get("rec-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected second, got %q", got)
	}
}
