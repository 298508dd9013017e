// Package journal keeps a sqlite ledger of successful uploads so earlier runs can be
// inspected after their report files are gone.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/coremint/coremint/internal/db"
	"github.com/coremint/coremint/internal/storage"
	"github.com/coremint/coremint/internal/upload"
	"github.com/coremint/coremint/internal/utils"
	"github.com/gofrs/flock"
	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS uploads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    source TEXT NOT NULL,
    unique_name TEXT NOT NULL,
    uri TEXT NOT NULL,
    backend TEXT NOT NULL,
    content_type TEXT NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL -- RFC3339
);

CREATE INDEX IF NOT EXISTS idx_uploads_run_id ON uploads(run_id);
CREATE INDEX IF NOT EXISTS idx_uploads_source ON uploads(source);
CREATE INDEX IF NOT EXISTS idx_uploads_unique_name ON uploads(unique_name);
`

var (
	ErrJournalLocked = errors.New("journal is locked by another process")
	ErrNotOpen       = errors.New("journal not open")
	ErrAlreadyOpen   = errors.New("journal already open")
)

type Entry struct {
	ID          int64
	RunID       string
	Source      string
	UniqueName  string
	URI         string
	Backend     storage.Kind
	ContentType string
	Size        int64
	UploadedAt  time.Time
}

// dbEntry is the scanned row, time is stored as TEXT.
type dbEntry struct {
	ID          int64  `db:"id"`
	RunID       string `db:"run_id"`
	Source      string `db:"source"`
	UniqueName  string `db:"unique_name"`
	URI         string `db:"uri"`
	Backend     string `db:"backend"`
	ContentType string `db:"content_type"`
	Size        int64  `db:"size"`
	UploadedAt  string `db:"uploaded_at"`
}

func (e *dbEntry) entry() (*Entry, error) {
	at, err := time.Parse(time.RFC3339Nano, e.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("parse uploaded_at %q: %w", e.UploadedAt, err)
	}
	return &Entry{
		ID:          e.ID,
		RunID:       e.RunID,
		Source:      e.Source,
		UniqueName:  e.UniqueName,
		URI:         e.URI,
		Backend:     storage.Kind(e.Backend),
		ContentType: e.ContentType,
		Size:        e.Size,
		UploadedAt:  at,
	}, nil
}

// RunSummary aggregates the entries of one run.
type RunSummary struct {
	RunID     string
	Backend   storage.Kind
	Files     int
	Bytes     int64
	StartedAt time.Time
}

type Filter struct {
	RunID  string
	Source string
	Limit  int
}

type Journal struct {
	db    *sqlx.DB
	path  string
	flock *flock.Flock
	now   func() time.Time
}

// New returns a closed journal at path. db.MemoryPath gives a private in-memory journal.
func New(path string) *Journal {
	j := &Journal{path: path, now: time.Now}
	if path != db.MemoryPath {
		j.flock = flock.New(path + ".lock")
	}
	return j
}

// Open locks the journal file and applies the schema. Only one process may hold a
// file backed journal at a time.
func (j *Journal) Open() error {
	if j.db != nil {
		return ErrAlreadyOpen
	}

	if j.flock != nil {
		dir := filepath.Dir(j.path)
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("create journal directory %s: %w", dir, err)
		}
		locked, err := j.flock.TryLock()
		if err != nil {
			return fmt.Errorf("lock journal: %w", err)
		}
		if !locked {
			return ErrJournalLocked
		}
	}

	conn, err := db.NewSqliteDB(db.WithPath(j.path), db.WithMaxOpenConns(1))
	if err != nil {
		j.unlock()
		return fmt.Errorf("open journal: %w", err)
	}
	if err := db.Migrate(conn, schema); err != nil {
		conn.Close()
		j.unlock()
		return fmt.Errorf("init journal schema: %w", err)
	}

	j.db = conn
	slog.Debug("journal opened", "path", j.path)
	return nil
}

func (j *Journal) Close() error {
	if j.db == nil {
		return ErrNotOpen
	}
	err := j.db.Close()
	j.db = nil
	j.unlock()
	if err != nil {
		return fmt.Errorf("close journal: %w", err)
	}
	return nil
}

func (j *Journal) unlock() {
	if j.flock == nil || !j.flock.Locked() {
		return
	}
	if err := j.flock.Unlock(); err != nil {
		slog.Warn("unlock journal", "path", j.flock.Path(), "error", err)
	}
}

// Record stores a successful upload.
func (j *Journal) Record(ctx context.Context, runID string, backend storage.Kind, s *upload.Success) error {
	return j.Add(ctx, &Entry{
		RunID:       runID,
		Source:      s.OriginalSource,
		UniqueName:  s.UniqueName,
		URI:         s.URI,
		Backend:     backend,
		ContentType: s.ContentType,
		Size:        s.Size,
	})
}

func (j *Journal) Add(ctx context.Context, e *Entry) error {
	if j.db == nil {
		return ErrNotOpen
	}
	if e.UploadedAt.IsZero() {
		e.UploadedAt = j.now()
	}

	res, err := j.db.ExecContext(ctx, `
		INSERT INTO uploads (run_id, source, unique_name, uri, backend, content_type, size, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Source, e.UniqueName, e.URI, string(e.Backend), e.ContentType, e.Size,
		e.UploadedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert upload %s: %w", e.Source, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// List returns entries newest first.
func (j *Journal) List(ctx context.Context, f Filter) ([]*Entry, error) {
	if j.db == nil {
		return nil, ErrNotOpen
	}

	var (
		where []string
		args  []any
	)
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}

	query := "SELECT id, run_id, source, unique_name, uri, backend, content_type, size, uploaded_at FROM uploads"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var rows []dbEntry
	if err := j.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}

	entries := make([]*Entry, 0, len(rows))
	for i := range rows {
		e, err := rows[i].entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Runs summarises the most recent runs, newest first.
func (j *Journal) Runs(ctx context.Context, limit int) ([]*RunSummary, error) {
	if j.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = 20
	}

	var rows []struct {
		RunID     string `db:"run_id"`
		Backend   string `db:"backend"`
		Files     int    `db:"files"`
		Bytes     int64  `db:"bytes"`
		StartedAt string `db:"started_at"`
	}
	err := j.db.SelectContext(ctx, &rows, `
		SELECT run_id, MIN(backend) AS backend, COUNT(*) AS files, SUM(size) AS bytes, MIN(uploaded_at) AS started_at
		FROM uploads
		GROUP BY run_id
		ORDER BY MIN(id) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]*RunSummary, 0, len(rows))
	for _, r := range rows {
		started, err := time.Parse(time.RFC3339Nano, r.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", r.StartedAt, err)
		}
		runs = append(runs, &RunSummary{
			RunID:     r.RunID,
			Backend:   storage.Kind(r.Backend),
			Files:     r.Files,
			Bytes:     r.Bytes,
			StartedAt: started,
		})
	}
	return runs, nil
}

var _ upload.Recorder = (*Journal)(nil)
