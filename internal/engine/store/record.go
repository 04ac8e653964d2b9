// Package store persists per-video results: the transcript, its language and
// any vocabulary work derived from it. SQLite is the default backend;
// PostgreSQL is used when a DATABASE_URL is configured.
package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_captions/internal/engine"
	"github.com/anatolykoptev/go_captions/internal/engine/vocab"
)

// ErrNotFound is returned by Get when no record exists for the video.
var ErrNotFound = errors.New("store: video not found")

// VideoRecord is everything saved for one video.
type VideoRecord struct {
	VideoID    string            `json:"video_id"`
	Title      string            `json:"title,omitempty"`
	Text       string            `json:"text,omitempty"`
	Language   string            `json:"language,omitempty"`
	Candidates []vocab.Candidate `json:"candidates,omitempty"`
	Cards      []vocab.Card      `json:"cards,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Store reads and merge-patches video records.
type Store interface {
	Get(ctx context.Context, videoID string) (*VideoRecord, error)
	// Save merges the non-empty fields of patch into the stored record and
	// returns the result.
	Save(ctx context.Context, patch VideoRecord) (*VideoRecord, error)
	Close()
}

// merge applies patch over base. Empty strings and nil slices keep base values.
func merge(base *VideoRecord, patch VideoRecord) VideoRecord {
	out := VideoRecord{VideoID: patch.VideoID}
	if base != nil {
		out = *base
	}
	if s := strings.TrimSpace(patch.Title); s != "" {
		out.Title = s
	}
	if patch.Text != "" {
		out.Text = patch.Text
	}
	if patch.Language != "" {
		out.Language = patch.Language
	}
	if patch.Candidates != nil {
		out.Candidates = patch.Candidates
	}
	if patch.Cards != nil {
		out.Cards = patch.Cards
	}
	out.UpdatedAt = time.Now().UTC()
	return out
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("store: video_id is required")
	}
	return nil
}

var (
	defaultStore Store
	defaultOnce  sync.Once
	defaultErr   error
)

// Default opens the process-wide store on first use: Postgres when
// engine.Cfg.DatabaseURL is set, else SQLite under the data directory.
func Default(ctx context.Context) (Store, error) {
	defaultOnce.Do(func() {
		if url := engine.Cfg.DatabaseURL; url != "" {
			pg, err := ConnectPostgres(ctx, url)
			if err == nil {
				defaultStore = pg
				return
			}
			slog.Warn("postgres store unavailable, using sqlite", slog.Any("error", err))
		}
		s, err := OpenSQLite(sqlitePath(engine.Cfg.DataDir))
		if err != nil {
			defaultErr = err
			return
		}
		defaultStore = s
	})
	return defaultStore, defaultErr
}

func sqlitePath(dataDir string) string {
	if dataDir == "" {
		dataDir = filepath.Join(os.Getenv("HOME"), ".go_captions")
	}
	return filepath.Join(dataDir, "videos.db")
}
