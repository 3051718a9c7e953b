package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/concepto/concepto-av/internal/apperr"
)

const (
	maxJSONBody   = 1 << 20
	maxExportBody = 512 << 20
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist(cfg.CORSOrigins...))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Keys, cfg.Logger))

		r.Get("/episodes/{episodeID}", getEpisodeHandler(cfg))
		r.Route("/episodes/{episodeID}/script", func(r chi.Router) {
			r.Get("/", getScriptHandler(cfg))
			r.Post("/segments", addSegmentHandler(cfg))
			r.Delete("/segments/{segmentID}", deleteSegmentHandler(cfg))
			r.Post("/segments/{segmentID}/shots", addShotHandler(cfg))
			r.Post("/segments/{segmentID}/shots/reorder", reorderShotHandler(cfg))
			r.Patch("/segments/{segmentID}/shots/{shotID}", updateShotHandler(cfg))
			r.Delete("/segments/{segmentID}/shots/{shotID}", deleteShotHandler(cfg))
		})

		r.Get("/shots/{shotID}", getShotHandler(cfg))
		r.Put("/shots/{shotID}", putShotHandler(cfg))

		r.Post("/export/av-editing", exportAVEditingHandler(cfg))
		r.Get("/exports", listExportsHandler(cfg))
		r.Get("/exports/{exportID}", getExportHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := cfg.Version
		if version == "" {
			version = "dev"
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return apperr.New(apperr.CodeValidation, "request body is required")
		}
		return apperr.Wrap(apperr.CodeValidation, err, "invalid request body")
	}
	return nil
}
