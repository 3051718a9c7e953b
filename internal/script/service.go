package script

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/concepto/concepto-av/internal/apperr"
)

type ScriptService interface {
	GetScript(ctx context.Context, episodeID string) (*Script, error)
	AddSegment(ctx context.Context, episodeID, title string) (*Script, error)
	DeleteSegment(ctx context.Context, episodeID, segmentID string) (*Script, error)
	AddShot(ctx context.Context, episodeID, segmentID string) (*Script, error)
	UpdateShot(ctx context.Context, episodeID, segmentID, shotID string, patch ShotPatch) (*Script, error)
	ReorderShot(ctx context.Context, episodeID, segmentID string, from, to int) (*Script, error)
	DeleteShot(ctx context.Context, episodeID, segmentID, shotID string) (*Script, error)
	GetShot(ctx context.Context, shotID string) (*ShotRef, error)
	UpdateShotByID(ctx context.Context, shotID string, patch ShotPatch) (*ShotRef, error)
}

// ShotRef is a shot together with the ids that locate it.
type ShotRef struct {
	EpisodeID     string `json:"episodeId"`
	SegmentID     string `json:"segmentId"`
	SegmentNumber int    `json:"segmentNumber"`
	Shot          Shot   `json:"shot"`
}

// Service applies aggregate mutations and persists the result after every
// single operation. Collaborator failures surface with their raw message.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetScript returns the stored script, or a fresh unsaved one when the
// episode has none. Reads never write; the first mutation persists it.
func (s *Service) GetScript(ctx context.Context, episodeID string) (*Script, error) {
	sc, err := s.load(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Service) AddSegment(ctx context.Context, episodeID, title string) (*Script, error) {
	return s.mutate(ctx, episodeID, "add_segment", func(sc *Script) error {
		sc.AddSegment(strings.TrimSpace(title))
		return nil
	})
}

func (s *Service) DeleteSegment(ctx context.Context, episodeID, segmentID string) (*Script, error) {
	return s.mutate(ctx, episodeID, "delete_segment", func(sc *Script) error {
		return sc.DeleteSegment(segmentID)
	})
}

func (s *Service) AddShot(ctx context.Context, episodeID, segmentID string) (*Script, error) {
	return s.mutate(ctx, episodeID, "add_shot", func(sc *Script) error {
		_, err := sc.AddShot(segmentID)
		return err
	})
}

func (s *Service) UpdateShot(ctx context.Context, episodeID, segmentID, shotID string, patch ShotPatch) (*Script, error) {
	return s.mutate(ctx, episodeID, "update_shot", func(sc *Script) error {
		_, err := sc.UpdateShot(segmentID, shotID, patch)
		return err
	})
}

func (s *Service) ReorderShot(ctx context.Context, episodeID, segmentID string, from, to int) (*Script, error) {
	return s.mutate(ctx, episodeID, "reorder_shot", func(sc *Script) error {
		return sc.ReorderShot(segmentID, from, to)
	})
}

func (s *Service) DeleteShot(ctx context.Context, episodeID, segmentID, shotID string) (*Script, error) {
	return s.mutate(ctx, episodeID, "delete_shot", func(sc *Script) error {
		return sc.DeleteShot(segmentID, shotID)
	})
}

func (s *Service) GetShot(ctx context.Context, shotID string) (*ShotRef, error) {
	sc, err := s.scriptForShot(ctx, shotID)
	if err != nil {
		return nil, err
	}
	return shotRef(sc, shotID)
}

func (s *Service) UpdateShotByID(ctx context.Context, shotID string, patch ShotPatch) (*ShotRef, error) {
	sc, err := s.scriptForShot(ctx, shotID)
	if err != nil {
		return nil, err
	}
	seg, _, err := sc.FindShot(shotID)
	if err != nil {
		return nil, domainError(err)
	}

	updated, err := s.UpdateShot(ctx, sc.EpisodeID, seg.ID, shotID, patch)
	if err != nil {
		return nil, err
	}
	return shotRef(updated, shotID)
}

func (s *Service) scriptForShot(ctx context.Context, shotID string) (*Script, error) {
	episodeID, err := s.repo.FindEpisodeByShot(ctx, shotID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUpstream, err, "")
	}
	if episodeID == "" {
		return nil, apperr.New(apperr.CodeNotFound, ErrShotNotFound.Error())
	}

	sc, err := s.repo.GetScript(ctx, episodeID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUpstream, err, "")
	}
	if sc == nil {
		return nil, apperr.New(apperr.CodeNotFound, ErrShotNotFound.Error())
	}
	return sc, nil
}

func (s *Service) mutate(ctx context.Context, episodeID, op string, fn func(*Script) error) (*Script, error) {
	sc, err := s.load(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	if err := fn(sc); err != nil {
		return nil, domainError(err)
	}
	sc.Recompute()

	if err := s.save(ctx, sc); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("script updated",
			"op", op,
			"episode_id", episodeID,
			"segments", len(sc.Segments),
			"total_words", sc.TotalWords,
			"total_runtime_s", sc.TotalRuntimeSeconds,
		)
	}
	return sc, nil
}

// load fetches the episode's script, creating an empty one on first use.
// load returns the stored script or a new empty one for the episode.
func (s *Service) load(ctx context.Context, episodeID string) (*Script, error) {
	if strings.TrimSpace(episodeID) == "" {
		return nil, apperr.New(apperr.CodeValidation, "episode id is required")
	}

	sc, err := s.repo.GetScript(ctx, episodeID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUpstream, err, "")
	}
	if sc == nil {
		sc = NewScript(episodeID)
	}
	return sc, nil
}

func (s *Service) save(ctx context.Context, sc *Script) error {
	if err := s.repo.SaveScript(ctx, sc); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to save script", "episode_id", sc.EpisodeID, "error", err)
		}
		return apperr.Wrap(apperr.CodeUpstream, err, "")
	}
	return nil
}

func shotRef(sc *Script, shotID string) (*ShotRef, error) {
	seg, shot, err := sc.FindShot(shotID)
	if err != nil {
		return nil, domainError(err)
	}
	return &ShotRef{
		EpisodeID:     sc.EpisodeID,
		SegmentID:     seg.ID,
		SegmentNumber: seg.SegmentNumber,
		Shot:          *shot,
	}, nil
}

func domainError(err error) error {
	switch {
	case errors.Is(err, ErrSegmentNotFound), errors.Is(err, ErrShotNotFound):
		return apperr.Wrap(apperr.CodeNotFound, err, "")
	case errors.Is(err, ErrIndexOutOfRange):
		return apperr.Wrap(apperr.CodeValidation, err, "")
	default:
		return err
	}
}
