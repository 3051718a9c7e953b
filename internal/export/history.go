package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// HistoryStore records export runs. Failures to record never fail an export.
type HistoryStore interface {
	Start(ctx context.Context, rec *Record) error
	Complete(ctx context.Context, id string, summary Summary) error
	Fail(ctx context.Context, id string, reason string) error
	List(ctx context.Context, episodeID string, limit int) ([]*Record, error)
	Get(ctx context.Context, id string) (*Record, error)
}

type SQLiteHistory struct {
	db *sql.DB
}

func NewHistory(db *sql.DB) *SQLiteHistory {
	return &SQLiteHistory{db: db}
}

func (h *SQLiteHistory) Start(ctx context.Context, rec *Record) error {
	now := time.Now().UTC()
	rec.Status = StatusRunning
	rec.CreatedAt = now
	rec.UpdatedAt = now
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO exports (id, episode_id, status, slide_count, audio_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.EpisodeID, rec.Status, rec.SlideCount, rec.AudioCount,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	return err
}

func (h *SQLiteHistory) Complete(ctx context.Context, id string, summary Summary) error {
	failed, err := json.Marshal(nonNil(summary.FailedURLs))
	if err != nil {
		return err
	}
	_, err = h.db.ExecContext(ctx, `
		UPDATE exports SET status = ?, slide_count = ?, audio_count = ?, failed_urls = ?,
			filename = ?, archive_bytes = ?, error = NULL, updated_at = ?
		WHERE id = ?
	`, StatusCompleted, summary.SlideCount, summary.AudioCount, string(failed),
		summary.Filename, summary.ArchiveBytes, time.Now().UTC().Format(time.RFC3339Nano), id)
	return err
}

func (h *SQLiteHistory) Fail(ctx context.Context, id string, reason string) error {
	_, err := h.db.ExecContext(ctx,
		"UPDATE exports SET status = ?, error = ?, updated_at = ? WHERE id = ?",
		StatusFailed, reason, time.Now().UTC().Format(time.RFC3339Nano), id)
	return err
}

// List returns an episode's export runs, newest first. An empty episodeID
// lists every episode.
func (h *SQLiteHistory) List(ctx context.Context, episodeID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, episode_id, status, slide_count, audio_count, failed_urls, filename,
		archive_bytes, error, created_at, updated_at FROM exports`
	args := []any{}
	if episodeID != "" {
		query += " WHERE episode_id = ?"
		args = append(args, episodeID)
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns (nil, nil) when no export has the id.
func (h *SQLiteHistory) Get(ctx context.Context, id string) (*Record, error) {
	row := h.db.QueryRowContext(ctx, `SELECT id, episode_id, status, slide_count, audio_count,
		failed_urls, filename, archive_bytes, error, created_at, updated_at
		FROM exports WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var failedURLs, filename, errMsg sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&rec.ID, &rec.EpisodeID, &rec.Status, &rec.SlideCount, &rec.AudioCount,
		&failedURLs, &filename, &rec.ArchiveBytes, &errMsg, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec.Filename = filename.String
	rec.Error = errMsg.String
	rec.FailedURLs = []string{}
	if failedURLs.Valid && failedURLs.String != "" {
		if err := json.Unmarshal([]byte(failedURLs.String), &rec.FailedURLs); err != nil {
			return nil, fmt.Errorf("decode failed urls for %s: %w", rec.ID, err)
		}
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}

// parseTime accepts RFC 3339 and SQLite's datetime('now') layout.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.DateTime, s)
	return t
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
