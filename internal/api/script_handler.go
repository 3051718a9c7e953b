package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/concepto/concepto-av/internal/apperr"
	"github.com/concepto/concepto-av/internal/script"
)

func getEpisodeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		episodeID := chi.URLParam(r, "episodeID")
		sc, err := cfg.Scripts.GetScript(r.Context(), episodeID)
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, DataResponse{
			Success: true,
			Data:    EpisodeData{ID: episodeID, AVScript: sc},
		})
	}
}

func getScriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := cfg.Scripts.GetScript(r.Context(), chi.URLParam(r, "episodeID"))
		writeScript(w, cfg, http.StatusOK, sc, err)
	}
}

func addSegmentHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddSegmentRequest
		if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		sc, err := cfg.Scripts.AddSegment(r.Context(), chi.URLParam(r, "episodeID"), req.Title)
		writeScript(w, cfg, http.StatusCreated, sc, err)
	}
}

func deleteSegmentHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := cfg.Scripts.DeleteSegment(r.Context(),
			chi.URLParam(r, "episodeID"), chi.URLParam(r, "segmentID"))
		writeScript(w, cfg, http.StatusOK, sc, err)
	}
}

func addShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := cfg.Scripts.AddShot(r.Context(),
			chi.URLParam(r, "episodeID"), chi.URLParam(r, "segmentID"))
		writeScript(w, cfg, http.StatusCreated, sc, err)
	}
}

func updateShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateShotRequest
		if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		sc, err := cfg.Scripts.UpdateShot(r.Context(),
			chi.URLParam(r, "episodeID"), chi.URLParam(r, "segmentID"), chi.URLParam(r, "shotID"), req.ShotPatch)
		writeScript(w, cfg, http.StatusOK, sc, err)
	}
}

func reorderShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReorderShotRequest
		if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		if req.FromIndex == nil || req.ToIndex == nil {
			WriteAppError(w, cfg.Logger, apperr.New(apperr.CodeValidation, "fromIndex and toIndex are required"))
			return
		}
		sc, err := cfg.Scripts.ReorderShot(r.Context(),
			chi.URLParam(r, "episodeID"), chi.URLParam(r, "segmentID"), *req.FromIndex, *req.ToIndex)
		writeScript(w, cfg, http.StatusOK, sc, err)
	}
}

func deleteShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := cfg.Scripts.DeleteShot(r.Context(),
			chi.URLParam(r, "episodeID"), chi.URLParam(r, "segmentID"), chi.URLParam(r, "shotID"))
		writeScript(w, cfg, http.StatusOK, sc, err)
	}
}

func getShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := cfg.Scripts.GetShot(r.Context(), chi.URLParam(r, "shotID"))
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, DataResponse{Success: true, Data: ref})
	}
}

func putShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateShotRequest
		if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		if req.ShotPatch.IsEmpty() && req.WordCount == nil && req.Runtime == nil {
			WriteAppError(w, cfg.Logger, apperr.New(apperr.CodeValidation, "no updatable fields provided"))
			return
		}
		ref, err := cfg.Scripts.UpdateShotByID(r.Context(), chi.URLParam(r, "shotID"), req.ShotPatch)
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, DataResponse{Success: true, Data: ref})
	}
}

func writeScript(w http.ResponseWriter, cfg ServerConfig, status int, sc *script.Script, err error) {
	if err != nil {
		WriteAppError(w, cfg.Logger, err)
		return
	}
	WriteJSON(w, status, sc)
}
