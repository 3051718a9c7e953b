package script

import (
	"time"

	"github.com/google/uuid"
)

// WordsPerSecond is the speaking rate used to derive a shot's runtime from
// its narration.
const WordsPerSecond = 3

// DefaultVersion labels newly created scripts.
const DefaultVersion = "v1"

type Shot struct {
	ID                 string    `json:"id"`
	Order              int       `json:"order"`
	ShotNumber         int       `json:"shotNumber"`
	Audio              string    `json:"audio"`
	Visual             string    `json:"visual"`
	WordCount          int       `json:"wordCount"`
	RuntimeSeconds     int       `json:"runtime"`
	DurationSeconds    float64   `json:"duration"`
	VideoOffsetSeconds *float64  `json:"videoOffset,omitempty"`
	ImageURL           string    `json:"imageUrl,omitempty"`
	VideoURL           string    `json:"videoUrl,omitempty"`
	AudioURL           string    `json:"audioUrl,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type Segment struct {
	ID                  string `json:"id"`
	SegmentNumber       int    `json:"segmentNumber"`
	Title               string `json:"title"`
	Shots               []Shot `json:"shots"`
	TotalRuntimeSeconds int    `json:"totalRuntime"`
	TotalWords          int    `json:"totalWords"`
}

// Script is the aggregate root for one episode's audio/visual script.
type Script struct {
	ID                  string    `json:"id"`
	EpisodeID           string    `json:"episodeId"`
	Version             string    `json:"version"`
	Segments            []Segment `json:"segments"`
	TotalRuntimeSeconds int       `json:"totalRuntime"`
	TotalWords          int       `json:"totalWords"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// ShotPatch holds the user-editable shot fields. Nil fields are left as is.
type ShotPatch struct {
	Audio              *string  `json:"audio,omitempty"`
	Visual             *string  `json:"visual,omitempty"`
	DurationSeconds    *float64 `json:"duration,omitempty"`
	VideoOffsetSeconds *float64 `json:"videoOffset,omitempty"`
	ImageURL           *string  `json:"imageUrl,omitempty"`
	VideoURL           *string  `json:"videoUrl,omitempty"`
	AudioURL           *string  `json:"audioUrl,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ShotPatch) IsEmpty() bool {
	return p.Audio == nil && p.Visual == nil && p.DurationSeconds == nil &&
		p.VideoOffsetSeconds == nil && p.ImageURL == nil && p.VideoURL == nil && p.AudioURL == nil
}

func NewID() string {
	return uuid.NewString()
}
