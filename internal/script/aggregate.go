// Package script holds the Script → Segment → Shot aggregate, its reorder
// rules, and the service that persists every mutation.
//
// Derived fields (shot order, shot numbers, word counts, runtimes and all
// totals) are always recomputed from the current children. Nothing is patched
// incrementally.
package script

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrSegmentNotFound = errors.New("segment not found")
	ErrShotNotFound    = errors.New("shot not found")
	ErrIndexOutOfRange = errors.New("shot index out of range")
)

func NewScript(episodeID string) *Script {
	now := time.Now().UTC()
	return &Script{
		ID:        NewID(),
		EpisodeID: episodeID,
		Version:   DefaultVersion,
		Segments:  []Segment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddSegment appends an empty segment numbered len(segments)+1.
func (s *Script) AddSegment(title string) *Segment {
	s.Segments = append(s.Segments, Segment{
		ID:            NewID(),
		SegmentNumber: len(s.Segments) + 1,
		Title:         title,
		Shots:         []Shot{},
	})
	s.Recompute()
	return &s.Segments[len(s.Segments)-1]
}

// AddShot appends an empty shot to the segment.
func (s *Script) AddShot(segmentID string) (*Shot, error) {
	seg := s.segment(segmentID)
	if seg == nil {
		return nil, ErrSegmentNotFound
	}

	now := time.Now().UTC()
	seg.Shots = append(seg.Shots, Shot{
		ID:        NewID(),
		Order:     len(seg.Shots),
		CreatedAt: now,
		UpdatedAt: now,
	})
	s.Recompute()
	return &seg.Shots[len(seg.Shots)-1], nil
}

// UpdateShot applies patch to a shot. A change of narration recomputes the
// shot's word count and runtime.
func (s *Script) UpdateShot(segmentID, shotID string, patch ShotPatch) (*Shot, error) {
	seg := s.segment(segmentID)
	if seg == nil {
		return nil, ErrSegmentNotFound
	}
	idx := seg.shotIndex(shotID)
	if idx < 0 {
		return nil, ErrShotNotFound
	}

	shot := &seg.Shots[idx]
	if patch.Audio != nil && *patch.Audio != shot.Audio {
		shot.Audio = *patch.Audio
		shot.WordCount = CountWords(shot.Audio)
		shot.RuntimeSeconds = RuntimeForWords(shot.WordCount)
	}
	if patch.Visual != nil {
		shot.Visual = *patch.Visual
	}
	if patch.DurationSeconds != nil {
		shot.DurationSeconds = *patch.DurationSeconds
	}
	if patch.VideoOffsetSeconds != nil {
		v := *patch.VideoOffsetSeconds
		shot.VideoOffsetSeconds = &v
	}
	if patch.ImageURL != nil {
		shot.ImageURL = *patch.ImageURL
	}
	if patch.VideoURL != nil {
		shot.VideoURL = *patch.VideoURL
	}
	if patch.AudioURL != nil {
		shot.AudioURL = *patch.AudioURL
	}
	shot.UpdatedAt = time.Now().UTC()

	s.Recompute()
	return &seg.Shots[idx], nil
}

// ReorderShot moves the shot at from to position to, then renumbers every
// shot in the segment.
func (s *Script) ReorderShot(segmentID string, from, to int) error {
	seg := s.segment(segmentID)
	if seg == nil {
		return ErrSegmentNotFound
	}
	n := len(seg.Shots)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}

	moved := seg.Shots[from]
	rest := append(seg.Shots[:from:from], seg.Shots[from+1:]...)
	shots := make([]Shot, 0, n)
	shots = append(shots, rest[:to]...)
	shots = append(shots, moved)
	shots = append(shots, rest[to:]...)
	seg.Shots = shots

	s.Recompute()
	return nil
}

// DeleteSegment removes a segment. Remaining segments are renumbered so
// segment numbers stay contiguous and unique.
func (s *Script) DeleteSegment(segmentID string) error {
	for i := range s.Segments {
		if s.Segments[i].ID == segmentID {
			s.Segments = append(s.Segments[:i:i], s.Segments[i+1:]...)
			s.Recompute()
			return nil
		}
	}
	return ErrSegmentNotFound
}

func (s *Script) DeleteShot(segmentID, shotID string) error {
	seg := s.segment(segmentID)
	if seg == nil {
		return ErrSegmentNotFound
	}
	idx := seg.shotIndex(shotID)
	if idx < 0 {
		return ErrShotNotFound
	}
	seg.Shots = append(seg.Shots[:idx:idx], seg.Shots[idx+1:]...)
	s.Recompute()
	return nil
}

// FindShot returns the segment and shot holding shotID.
func (s *Script) FindShot(shotID string) (*Segment, *Shot, error) {
	for i := range s.Segments {
		seg := &s.Segments[i]
		if idx := seg.shotIndex(shotID); idx >= 0 {
			return seg, &seg.Shots[idx], nil
		}
	}
	return nil, nil, ErrShotNotFound
}

// Recompute rederives segment numbers, shot order, shot numbers and all
// totals from the current tree, bottom-up.
func (s *Script) Recompute() {
	s.TotalWords = 0
	s.TotalRuntimeSeconds = 0
	for i := range s.Segments {
		seg := &s.Segments[i]
		seg.SegmentNumber = i + 1
		seg.renumber()
		seg.recomputeTotals()
		s.TotalWords += seg.TotalWords
		s.TotalRuntimeSeconds += seg.TotalRuntimeSeconds
	}
	s.UpdatedAt = time.Now().UTC()
}

func (seg *Segment) renumber() {
	for i := range seg.Shots {
		seg.Shots[i].Order = i
		seg.Shots[i].ShotNumber = ShotNumber(seg.SegmentNumber, i)
	}
}

func (seg *Segment) recomputeTotals() {
	seg.TotalWords = 0
	seg.TotalRuntimeSeconds = 0
	for _, shot := range seg.Shots {
		seg.TotalWords += shot.WordCount
		seg.TotalRuntimeSeconds += shot.RuntimeSeconds
	}
}

func (seg *Segment) shotIndex(shotID string) int {
	for i := range seg.Shots {
		if seg.Shots[i].ID == shotID {
			return i
		}
	}
	return -1
}

func (s *Script) segment(segmentID string) *Segment {
	for i := range s.Segments {
		if s.Segments[i].ID == segmentID {
			return &s.Segments[i]
		}
	}
	return nil
}

// ShotNumber is segmentNumber*100 + order + 1.
func ShotNumber(segmentNumber, order int) int {
	return segmentNumber*100 + order + 1
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// RuntimeForWords returns ceil(words / WordsPerSecond).
func RuntimeForWords(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + WordsPerSecond - 1) / WordsPerSecond
}
