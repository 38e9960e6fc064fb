package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/voxnote/voxnote/internal/note"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "voxnote.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at TEXT NOT NULL,
			duration REAL NOT NULL DEFAULT 0,
			status_stage TEXT NOT NULL,
			status_return_to TEXT NOT NULL DEFAULT '',
			status_failed TEXT NOT NULL DEFAULT '',
			transcript TEXT NOT NULL DEFAULT '',
			improved TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			tasks TEXT NOT NULL DEFAULT '[]',
			key_points TEXT NOT NULL DEFAULT '[]',
			version INTEGER NOT NULL DEFAULT 1
		);
	`); err != nil {
		return fmt.Errorf("create recordings table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create settings table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_recordings_created_at ON recordings(created_at)"); err != nil {
		return fmt.Errorf("create recordings index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) CreateRecording(rec note.Recording) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("recording id is required")
	}

	tasks, keyPoints, err := marshalLists(rec)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO recordings(
			id, title, created_at, duration,
			status_stage, status_return_to, status_failed,
			transcript, improved, summary, tasks, key_points, version
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		rec.ID,
		rec.Title,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.Duration,
		string(rec.Status.Stage),
		string(rec.Status.ReturnTo),
		string(rec.Status.Failed),
		rec.Transcript,
		rec.Improved,
		rec.Summary,
		tasks,
		keyPoints,
	)
	if err != nil {
		return fmt.Errorf("create recording %s: %w", rec.ID, err)
	}
	return nil
}

// UpdateRecording writes every mutable field of rec, guarded by a
// compare-and-swap on rec.Version. The stored version becomes
// rec.Version+1; losing the swap returns note.ErrConcurrentEdit.
func (s *SQLiteStore) UpdateRecording(rec note.Recording) error {
	tasks, keyPoints, err := marshalLists(rec)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(
		`UPDATE recordings SET
			title = ?, duration = ?,
			status_stage = ?, status_return_to = ?, status_failed = ?,
			transcript = ?, improved = ?, summary = ?, tasks = ?, key_points = ?,
			version = version + 1
		 WHERE id = ? AND version = ?`,
		rec.Title,
		rec.Duration,
		string(rec.Status.Stage),
		string(rec.Status.ReturnTo),
		string(rec.Status.Failed),
		rec.Transcript,
		rec.Improved,
		rec.Summary,
		tasks,
		keyPoints,
		rec.ID,
		rec.Version,
	)
	if err != nil {
		return fmt.Errorf("update recording %s: %w", rec.ID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update recording rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a lost swap from a missing row.
		if _, getErr := s.GetRecording(rec.ID); getErr != nil {
			return getErr
		}
		return note.ErrConcurrentEdit
	}
	return nil
}

func (s *SQLiteStore) GetRecording(id string) (note.Recording, error) {
	row := s.db.QueryRow(
		`SELECT id, title, created_at, duration,
			status_stage, status_return_to, status_failed,
			transcript, improved, summary, tasks, key_points, version
		 FROM recordings WHERE id = ?`,
		id,
	)

	rec, err := scanRecording(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return note.Recording{}, note.ErrNotFound
	}
	if err != nil {
		return note.Recording{}, fmt.Errorf("query recording %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListRecordings() ([]note.Recording, error) {
	rows, err := s.db.Query(
		`SELECT id, title, created_at, duration,
			status_stage, status_return_to, status_failed,
			transcript, improved, summary, tasks, key_points, version
		 FROM recordings
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	recordings := make([]note.Recording, 0, 16)
	for rows.Next() {
		rec, err := scanRecording(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		recordings = append(recordings, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recording rows: %w", err)
	}

	return recordings, nil
}

func (s *SQLiteStore) DeleteRecording(id string) error {
	res, err := s.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recording %s: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete recording rows affected: %w", err)
	}
	if rows == 0 {
		return note.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetSetting(key string) (string, error) {
	row := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key)

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("query setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) PutSetting(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("setting key is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO settings(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key,
		value,
	)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

func marshalLists(rec note.Recording) (tasks, keyPoints string, err error) {
	t, err := json.Marshal(emptyIfNil(rec.Tasks))
	if err != nil {
		return "", "", fmt.Errorf("marshal tasks for %s: %w", rec.ID, err)
	}
	k, err := json.Marshal(emptyIfNil(rec.KeyPoints))
	if err != nil {
		return "", "", fmt.Errorf("marshal key points for %s: %w", rec.ID, err)
	}
	return string(t), string(k), nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func scanRecording(scan func(dest ...any) error) (note.Recording, error) {
	var rec note.Recording
	var createdAt, stage, returnTo, failed, tasks, keyPoints string

	err := scan(
		&rec.ID, &rec.Title, &createdAt, &rec.Duration,
		&stage, &returnTo, &failed,
		&rec.Transcript, &rec.Improved, &rec.Summary, &tasks, &keyPoints, &rec.Version,
	)
	if err != nil {
		return note.Recording{}, err
	}

	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return note.Recording{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = parsed

	rec.Status = note.Status{
		Stage:    note.Stage(stage),
		ReturnTo: note.Stage(returnTo),
		Failed:   note.Stage(failed),
	}

	if err := json.Unmarshal([]byte(tasks), &rec.Tasks); err != nil {
		return note.Recording{}, fmt.Errorf("parse tasks: %w", err)
	}
	if err := json.Unmarshal([]byte(keyPoints), &rec.KeyPoints); err != nil {
		return note.Recording{}, fmt.Errorf("parse key points: %w", err)
	}

	return rec, nil
}
