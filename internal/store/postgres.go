// Package store provides persistence for scraped videos and comments.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/clipstream/harvester/internal/scraper"
)

// PostgresConfig controls the Postgres connection pool.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore implements scraper.VideoStore on a pgx connection pool.
// A video and its comments are written in one transaction so a partially
// scraped record never becomes visible.
type PostgresStore struct {
	pool   pgxPool
	logger *zap.Logger
}

// NewPostgresStore connects a pool using the provided config.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, logger *zap.Logger) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPostgresStoreWithPool(pool, logger)
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool pgxPool, logger *zap.Logger) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// StoredVideoIDs returns the subset of ids already present in the videos table.
func (s *PostgresStore) StoredVideoIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT video_id FROM videos WHERE video_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query stored video ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan video id: %w", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stored video ids: %w", err)
	}
	return found, nil
}

// The store assumes two tables:
//
//	CREATE TABLE videos (
//		video_id TEXT PRIMARY KEY,
//		thumbnail_url TEXT,
//		searched_term TEXT,
//		video_url TEXT,
//		author_username TEXT,
//		video_description TEXT,
//		extracted_hashtags TEXT[],
//		platform TEXT,
//		upload_date TEXT,
//		likes_count BIGINT,
//		share_count BIGINT,
//		comment_count BIGINT,
//		play_count BIGINT,
//		scraped_at TIMESTAMPTZ
//	);
//
//	CREATE TABLE comments (
//		comment_id TEXT PRIMARY KEY,
//		video_id TEXT REFERENCES videos(video_id),
//		parent_comment_id TEXT,
//		author TEXT,
//		comment_text TEXT,
//		likes_count BIGINT,
//		is_creator BOOLEAN
//	);
const upsertVideoSQL = `
INSERT INTO videos (
	video_id,
	thumbnail_url,
	searched_term,
	video_url,
	author_username,
	video_description,
	extracted_hashtags,
	platform,
	upload_date,
	likes_count,
	share_count,
	comment_count,
	play_count,
	scraped_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())
ON CONFLICT (video_id) DO UPDATE SET
	thumbnail_url = EXCLUDED.thumbnail_url,
	searched_term = EXCLUDED.searched_term,
	video_description = EXCLUDED.video_description,
	extracted_hashtags = EXCLUDED.extracted_hashtags,
	upload_date = EXCLUDED.upload_date,
	likes_count = EXCLUDED.likes_count,
	share_count = EXCLUDED.share_count,
	comment_count = EXCLUDED.comment_count,
	play_count = EXCLUDED.play_count,
	scraped_at = NOW()`

const upsertCommentSQL = `
INSERT INTO comments (
	comment_id,
	video_id,
	parent_comment_id,
	author,
	comment_text,
	likes_count,
	is_creator
) VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7)
ON CONFLICT (comment_id) DO UPDATE SET
	comment_text = EXCLUDED.comment_text,
	likes_count = EXCLUDED.likes_count,
	is_creator = EXCLUDED.is_creator`

// UpsertVideo writes the record and its comments in a single transaction,
// keyed by video_id and comment_id respectively.
func (s *PostgresStore) UpsertVideo(ctx context.Context, record scraper.VideoRecord) error {
	if record.VideoID == "" {
		return fmt.Errorf("video id is required")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			s.logger.Error("rollback failed", zap.Error(rbErr))
		}
	}()

	if _, err := tx.Exec(ctx, upsertVideoSQL,
		record.VideoID,
		record.ThumbnailURL,
		record.SearchedTerm,
		record.VideoURL,
		record.AuthorUsername,
		record.Description,
		record.ExtractedHashtags,
		record.Platform,
		record.UploadDate,
		record.Stats.LikesCount,
		record.Stats.ShareCount,
		record.Stats.CommentCount,
		record.Stats.PlayCount,
	); err != nil {
		return fmt.Errorf("upsert video %s: %w", record.VideoID, err)
	}

	for _, comment := range record.Comments {
		if _, err := tx.Exec(ctx, upsertCommentSQL,
			comment.CommentID,
			record.VideoID,
			comment.ParentCommentID,
			comment.Author,
			comment.Text,
			comment.LikesCount,
			comment.IsCreator,
		); err != nil {
			return fmt.Errorf("upsert comment %s: %w", comment.CommentID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	s.logger.Debug("video upserted",
		zap.String("video_id", record.VideoID),
		zap.Int("comments", len(record.Comments)),
	)
	return nil
}
