// Package export turns an episode timeline into an FCPXML document plus
// media, packaged as a zip archive.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/concepto/concepto-av/internal/apperr"
	"github.com/concepto/concepto-av/internal/logging"
)

// Exporter runs export jobs: validate, resolve, fetch, build, package.
type Exporter struct {
	fetcher *Fetcher
	history HistoryStore
	logger  *slog.Logger
	now     func() time.Time
	pack    func(root, mediaFiles []ArchiveEntry, modified time.Time) ([]byte, error)
}

// NewExporter creates an exporter. history may be nil.
func NewExporter(fetcher *Fetcher, history HistoryStore, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{
		fetcher: fetcher,
		history: history,
		logger:  logger,
		now:     time.Now,
		pack:    WriteArchive,
	}
}

func (e *Exporter) Export(ctx context.Context, req *Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	slides := usableSlides(req.Slides)
	tracks := usableTracks(req.AudioTracks)
	if len(slides) == 0 && len(tracks) == 0 {
		return nil, apperr.New(apperr.CodeValidation, "no slides or audio tracks with media to export")
	}

	exportID := uuid.NewString()
	logger := logging.WithExportID(logging.WithEpisodeID(e.logger, req.EpisodeID), exportID)
	logger.Info("export started", "slides", len(slides), "audio_tracks", len(tracks))

	e.recordStart(ctx, logger, &Record{
		ID:         exportID,
		EpisodeID:  req.EpisodeID,
		SlideCount: len(slides),
		AudioCount: len(tracks),
	})

	result, err := e.run(ctx, logger, exportID, req, slides, tracks)
	if err != nil {
		logger.Error("export failed", "code", apperr.GetCode(err), "error", err)
		e.recordFail(ctx, logger, exportID, err)
		return nil, err
	}

	e.recordComplete(ctx, logger, exportID, result.Summary)
	logger.Info("export completed",
		"filename", result.Filename,
		"media_files", result.Summary.MediaFiles,
		"failed", len(result.Summary.FailedURLs),
		"size", humanize.Bytes(uint64(result.Summary.ArchiveBytes)),
	)
	return result, nil
}

func (e *Exporter) run(ctx context.Context, logger *slog.Logger, exportID string, req *Request, slides []Slide, tracks []AudioTrack) (*Result, error) {
	imageURLs := make([]string, len(slides))
	for i, s := range slides {
		imageURLs[i] = s.ImageURL
	}
	audioURLs := make([]string, len(tracks))
	for i, t := range tracks {
		audioURLs[i] = t.AudioURL
	}
	images := Resolve(imageURLs, KindImage)
	audio := Resolve(audioURLs, KindAudio)

	fetched := e.fetcher.FetchAll(ctx, append(images.Assets(), audio.Assets()...))
	if len(fetched.Succeeded) == 0 {
		return nil, apperr.New(apperr.CodeExportFatal, "nothing to export: every media fetch failed").
			WithDetails(fmt.Sprintf("%d media urls failed", len(fetched.Failed)))
	}

	// Filenames carry the kind prefix, so one URL used as both an image and
	// an audio track is tracked per kind.
	ok := make(map[string]bool, len(fetched.Succeeded))
	mediaFiles := make([]ArchiveEntry, 0, len(fetched.Succeeded))
	for _, f := range fetched.Succeeded {
		ok[f.Filename] = true
		mediaFiles = append(mediaFiles, ArchiveEntry{Name: f.Filename, Data: f.Data})
	}

	tl := Timeline{
		Title:         "AV Editing Export - " + req.EpisodeID,
		TotalDuration: req.TotalDuration,
	}
	for _, s := range slides {
		name, _ := images.Filename(s.ImageURL)
		if !ok[name] {
			continue
		}
		tl.Images = append(tl.Images, ImageClip{ID: s.ID, Filename: name, StartTime: s.StartTime, Duration: s.Duration})
	}
	for _, t := range tracks {
		name, _ := audio.Filename(t.AudioURL)
		if !ok[name] {
			continue
		}
		tl.Audio = append(tl.Audio, AudioClip{
			ID:        t.ID,
			Name:      t.Name,
			Filename:  name,
			StartTime: t.StartTime,
			Duration:  t.Duration,
			Volume:    t.Volume,
		})
	}

	doc, err := BuildDocument(tl)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePackaging, err, "failed to build timeline document")
	}

	now := e.now()
	archive, err := e.pack([]ArchiveEntry{
		{Name: DocumentName, Data: doc},
		{Name: EDLName, Data: []byte(GenerateEDL(tl))},
	}, mediaFiles, now)
	if err != nil {
		return nil, err
	}

	failed := make([]string, len(fetched.Failed))
	for i, u := range fetched.Failed {
		failed[i] = logging.SanitizeURL(u)
	}

	filename := ArchiveFilename(req.EpisodeID, now)
	logger.Debug("archive written", "filename", filename, "bytes", len(archive))
	return &Result{
		Filename: filename,
		Archive:  archive,
		Summary: Summary{
			ExportID:     exportID,
			EpisodeID:    req.EpisodeID,
			Filename:     filename,
			SlideCount:   len(tl.Images),
			AudioCount:   len(tl.Audio),
			MediaFiles:   len(mediaFiles),
			FailedURLs:   failed,
			ArchiveBytes: int64(len(archive)),
		},
	}, nil
}

func validate(req *Request) error {
	if req == nil {
		return apperr.New(apperr.CodeValidation, "request body is required")
	}
	if req.Slides == nil {
		return apperr.New(apperr.CodeValidation, "slides must be an array")
	}
	return nil
}

func usableSlides(in []Slide) []Slide {
	out := make([]Slide, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s.ImageURL) != "" {
			out = append(out, s)
		}
	}
	return out
}

func usableTracks(in []AudioTrack) []AudioTrack {
	out := make([]AudioTrack, 0, len(in))
	for _, t := range in {
		if strings.TrimSpace(t.AudioURL) != "" {
			out = append(out, t)
		}
	}
	return out
}

func (e *Exporter) recordStart(ctx context.Context, logger *slog.Logger, rec *Record) {
	if e.history == nil {
		return
	}
	if err := e.history.Start(ctx, rec); err != nil {
		logger.Warn("failed to record export start", "error", err)
	}
}

func (e *Exporter) recordComplete(ctx context.Context, logger *slog.Logger, id string, summary Summary) {
	if e.history == nil {
		return
	}
	if err := e.history.Complete(ctx, id, summary); err != nil {
		logger.Warn("failed to record export completion", "error", err)
	}
}

func (e *Exporter) recordFail(ctx context.Context, logger *slog.Logger, id string, cause error) {
	if e.history == nil {
		return
	}
	if err := e.history.Fail(ctx, id, cause.Error()); err != nil {
		logger.Warn("failed to record export failure", "error", err)
	}
}
