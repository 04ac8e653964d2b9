package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Postgres stores records in the caption_videos table.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and runs schema migrations.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 5
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := &Postgres{pool: pool}
	if err := db.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("video store postgres connected", slog.String("addr", config.ConnConfig.Host))
	return db, nil
}

func (db *Postgres) Close() { db.pool.Close() }

func (db *Postgres) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := db.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
		slog.Debug("migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

func (db *Postgres) Get(ctx context.Context, videoID string) (*VideoRecord, error) {
	if err := validID(videoID); err != nil {
		return nil, err
	}
	return getPG(ctx, db.pool, videoID, "")
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getPG(ctx context.Context, q pgQuerier, videoID, suffix string) (*VideoRecord, error) {
	var (
		rec               VideoRecord
		candidates, cards []byte
	)
	err := q.QueryRow(ctx,
		`SELECT video_id, title, text, language, candidates, cards, updated_at
		 FROM caption_videos WHERE video_id = $1`+suffix, videoID,
	).Scan(&rec.VideoID, &rec.Title, &rec.Text, &rec.Language, &candidates, &cards, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", videoID, err)
	}
	if len(candidates) > 0 {
		_ = json.Unmarshal(candidates, &rec.Candidates)
	}
	if len(cards) > 0 {
		_ = json.Unmarshal(cards, &rec.Cards)
	}
	return &rec, nil
}

func (db *Postgres) Save(ctx context.Context, patch VideoRecord) (*VideoRecord, error) {
	if err := validID(patch.VideoID); err != nil {
		return nil, err
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	existing, err := getPG(ctx, tx, patch.VideoID, " FOR UPDATE")
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	rec := merge(existing, patch)

	if _, err := tx.Exec(ctx,
		`INSERT INTO caption_videos (video_id, title, text, language, candidates, cards, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (video_id) DO UPDATE SET
		   title = EXCLUDED.title, text = EXCLUDED.text, language = EXCLUDED.language,
		   candidates = EXCLUDED.candidates, cards = EXCLUDED.cards, updated_at = EXCLUDED.updated_at`,
		rec.VideoID, rec.Title, rec.Text, rec.Language,
		jsonb(rec.Candidates), jsonb(rec.Cards), rec.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("store: save %s: %w", rec.VideoID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return &rec, nil
}

func jsonb[T any](v []T) []byte {
	if v == nil {
		return nil
	}
	data, _ := json.Marshal(v)
	return data
}
