package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tubeq/internal/types"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	id          TEXT PRIMARY KEY,
	video_id    TEXT NOT NULL,
	title       TEXT NOT NULL,
	url         TEXT NOT NULL,
	quality     TEXT NOT NULL,
	status      TEXT NOT NULL,
	output_path TEXT NOT NULL DEFAULT '',
	size        INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	archived_to TEXT NOT NULL DEFAULT '',
	finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_downloads_finished ON downloads(finished_at);
`

// Entry is one finished task as stored in the history database.
type Entry struct {
	ID         string
	VideoID    string
	Title      string
	URL        string
	Quality    string
	Status     types.TaskStatus
	OutputPath string
	Size       int64
	Error      string
	ArchivedTo string
	FinishedAt time.Time
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create history dir: %v", types.ErrFilesystem, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	log.Debug().Str("op", "history/history").Msgf("history database at %s", path)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a terminal task. Recording the same task again replaces the
// previous row, so a restarted task keeps only its latest outcome.
func (s *Store) Record(ctx context.Context, task types.DownloadTask) error {
	if !task.Status.IsTerminal() {
		return fmt.Errorf("%w: task %s is %s", types.ErrInvalidState, task.ID, task.Status)
	}
	return s.put(ctx, entryFromTask(task))
}

// MarkArchived attaches the archive location of a recorded task.
func (s *Store) MarkArchived(ctx context.Context, id, location string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE downloads SET archived_to = ? WHERE id = ?;`, location, id)
	if err != nil {
		return fmt.Errorf("update history: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", types.ErrTaskNotFound, id)
	}
	return nil
}

func (s *Store) put(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads (id, video_id, title, url, quality, status, output_path, size, error, archived_to, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			output_path = excluded.output_path,
			size = excluded.size,
			error = excluded.error,
			finished_at = excluded.finished_at;
	`, e.ID, e.VideoID, e.Title, e.URL, e.Quality, string(e.Status), e.OutputPath, e.Size, e.Error, e.ArchivedTo,
		e.FinishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, video_id, title, url, quality, status, output_path, size, error, archived_to, finished_at
		FROM downloads ORDER BY finished_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status, finished string
		if err := rows.Scan(&e.ID, &e.VideoID, &e.Title, &e.URL, &e.Quality, &status, &e.OutputPath, &e.Size, &e.Error, &e.ArchivedTo, &finished); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Status = types.TaskStatus(status)
		if t, err := time.Parse(time.RFC3339Nano, finished); err == nil {
			e.FinishedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func entryFromTask(task types.DownloadTask) Entry {
	e := Entry{
		ID:         task.ID,
		Title:      task.Title(),
		Quality:    task.Stream.QualityLabel(),
		Status:     task.Status,
		OutputPath: task.OutputPath,
		Size:       task.Downloaded,
		FinishedAt: task.FinishedAt,
	}
	if task.Video != nil {
		e.VideoID = task.Video.ID
		e.URL = task.Video.URL
	}
	if task.Err != nil {
		e.Error = task.Err.Error()
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now()
	}
	return e
}
