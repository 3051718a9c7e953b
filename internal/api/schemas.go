package api

import (
	"time"

	"github.com/concepto/concepto-av/internal/export"
	"github.com/concepto/concepto-av/internal/script"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// DataResponse is the success envelope of the external plugin API.
type DataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type EpisodeData struct {
	ID       string         `json:"id"`
	AVScript *script.Script `json:"avScript"`
}

type AddSegmentRequest struct {
	Title string `json:"title"`
}

type ReorderShotRequest struct {
	FromIndex *int `json:"fromIndex"`
	ToIndex   *int `json:"toIndex"`
}

// UpdateShotRequest is the body of PUT /shots/{id} and of the segment-scoped
// PATCH. wordCount and runtime are accepted for compatibility with older
// clients but ignored; both are derived from audio.
type UpdateShotRequest struct {
	script.ShotPatch
	WordCount *int     `json:"wordCount,omitempty"`
	Runtime   *float64 `json:"runtime,omitempty"`
}

type ExportResponse struct {
	ID           string   `json:"id"`
	EpisodeID    string   `json:"episodeId"`
	Status       string   `json:"status"`
	SlideCount   int      `json:"slideCount"`
	AudioCount   int      `json:"audioCount"`
	FailedURLs   []string `json:"failedUrls"`
	Filename     string   `json:"filename,omitempty"`
	ArchiveBytes int64    `json:"archiveBytes"`
	Error        string   `json:"error,omitempty"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

type ExportsResponse struct {
	Exports []ExportResponse `json:"exports"`
}

func RecordToResponse(r *export.Record) ExportResponse {
	failed := r.FailedURLs
	if failed == nil {
		failed = []string{}
	}
	return ExportResponse{
		ID:           r.ID,
		EpisodeID:    r.EpisodeID,
		Status:       string(r.Status),
		SlideCount:   r.SlideCount,
		AudioCount:   r.AudioCount,
		FailedURLs:   failed,
		Filename:     r.Filename,
		ArchiveBytes: r.ArchiveBytes,
		Error:        r.Error,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    r.UpdatedAt.Format(time.RFC3339),
	}
}
