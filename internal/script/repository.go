package script

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository is the persistence collaborator for script aggregates.
// GetScript returns (nil, nil) when the episode has no script yet.
type Repository interface {
	GetScript(ctx context.Context, episodeID string) (*Script, error)
	SaveScript(ctx context.Context, s *Script) error
	FindEpisodeByShot(ctx context.Context, shotID string) (string, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

// SQLiteRepository stores each script as one JSON document keyed by episode
// and keeps a shot → episode index for by-id lookups.
type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetScript(ctx context.Context, episodeID string) (*Script, error) {
	var data string
	err := r.db.QueryRowContext(ctx, "SELECT data FROM scripts WHERE episode_id = ?", episodeID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s Script
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decode script %s: %w", episodeID, err)
	}
	if s.Segments == nil {
		s.Segments = []Segment{}
	}
	return &s, nil
}

func (r *SQLiteRepository) SaveScript(ctx context.Context, s *Script) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode script: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scripts (episode_id, script_id, version, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(episode_id) DO UPDATE SET
			version = excluded.version,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, s.EpisodeID, s.ID, s.Version, string(data), s.CreatedAt.Format(time.RFC3339), s.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM shot_index WHERE episode_id = ?", s.EpisodeID); err != nil {
		return err
	}
	for _, seg := range s.Segments {
		for _, shot := range seg.Shots {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO shot_index (shot_id, episode_id) VALUES (?, ?)",
				shot.ID, s.EpisodeID); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepository) FindEpisodeByShot(ctx context.Context, shotID string) (string, error) {
	var episodeID string
	err := r.db.QueryRowContext(ctx, "SELECT episode_id FROM shot_index WHERE shot_id = ?", shotID).Scan(&episodeID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return episodeID, err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
