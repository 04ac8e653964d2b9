package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is the single-file store.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("store: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS videos (
		video_id   TEXT PRIMARY KEY,
		title      TEXT NOT NULL DEFAULT '',
		text       TEXT NOT NULL DEFAULT '',
		language   TEXT NOT NULL DEFAULT '',
		candidates TEXT,
		cards      TEXT,
		updated_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() { s.db.Close() }

func (s *SQLite) Get(ctx context.Context, videoID string) (*VideoRecord, error) {
	if err := validID(videoID); err != nil {
		return nil, err
	}
	return s.get(ctx, s.db, videoID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) get(ctx context.Context, q querier, videoID string) (*VideoRecord, error) {
	var (
		rec               VideoRecord
		candidates, cards sql.NullString
		updated           string
	)
	err := q.QueryRowContext(ctx,
		`SELECT video_id, title, text, language, candidates, cards, updated_at FROM videos WHERE video_id = ?`,
		videoID,
	).Scan(&rec.VideoID, &rec.Title, &rec.Text, &rec.Language, &candidates, &cards, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", videoID, err)
	}
	if candidates.Valid {
		_ = json.Unmarshal([]byte(candidates.String), &rec.Candidates)
	}
	if cards.Valid {
		_ = json.Unmarshal([]byte(cards.String), &rec.Cards)
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &rec, nil
}

func (s *SQLite) Save(ctx context.Context, patch VideoRecord) (*VideoRecord, error) {
	if err := validID(patch.VideoID); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := s.get(ctx, tx, patch.VideoID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	rec := merge(existing, patch)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO videos (video_id, title, text, language, candidates, cards, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(video_id) DO UPDATE SET
		   title=excluded.title, text=excluded.text, language=excluded.language,
		   candidates=excluded.candidates, cards=excluded.cards, updated_at=excluded.updated_at`,
		rec.VideoID, rec.Title, rec.Text, rec.Language,
		nullJSON(rec.Candidates), nullJSON(rec.Cards),
		rec.UpdatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("store: save %s: %w", rec.VideoID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return &rec, nil
}

func nullJSON[T any](v []T) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}
