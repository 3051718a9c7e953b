package export

import "time"

// Request is an export job's input: the flattened timeline of an episode.
// A nil Slides slice means the field was missing or null in the payload.
type Request struct {
	EpisodeID     string       `json:"episodeId"`
	Slides        []Slide      `json:"slides"`
	AudioTracks   []AudioTrack `json:"audioTracks"`
	TotalDuration float64      `json:"totalDuration"`
}

type Slide struct {
	ID               string  `json:"id"`
	ImageURL         string  `json:"imageUrl"`
	Duration         float64 `json:"duration"`
	StartTime        float64 `json:"startTime"`
	Order            int     `json:"order"`
	IsManuallyEdited bool    `json:"isManuallyEdited,omitempty"`
}

// AudioTrack is one audio clip on the timeline. Type is informational; every
// track lands on the same audio lane at export.
type AudioTrack struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	AudioURL  string   `json:"audioUrl"`
	StartTime float64  `json:"startTime"`
	Duration  float64  `json:"duration"`
	Volume    *float64 `json:"volume,omitempty"`
	Order     int      `json:"order"`
	Type      string   `json:"type,omitempty"`
}

// Summary describes a finished export.
type Summary struct {
	ExportID     string   `json:"exportId"`
	EpisodeID    string   `json:"episodeId"`
	Filename     string   `json:"filename"`
	SlideCount   int      `json:"slideCount"`
	AudioCount   int      `json:"audioCount"`
	MediaFiles   int      `json:"mediaFiles"`
	FailedURLs   []string `json:"failedUrls"`
	ArchiveBytes int64    `json:"archiveBytes"`
}

// Result is the packaged archive plus its summary.
type Result struct {
	Filename string
	Archive  []byte
	Summary  Summary
}

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is the persisted history row of one export run.
type Record struct {
	ID           string    `json:"id"`
	EpisodeID    string    `json:"episodeId"`
	Status       Status    `json:"status"`
	SlideCount   int       `json:"slideCount"`
	AudioCount   int       `json:"audioCount"`
	FailedURLs   []string  `json:"failedUrls"`
	Filename     string    `json:"filename,omitempty"`
	ArchiveBytes int64     `json:"archiveBytes"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
