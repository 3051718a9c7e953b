package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/concepto/concepto-av/internal/apperr"
	"github.com/concepto/concepto-av/internal/export"
)

func exportAVEditingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.Request
		if err := decodeJSON(w, r, maxExportBody, &req); err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}

		result, err := cfg.Exporter.Export(r.Context(), &req)
		if err != nil {
			WriteAppError(w, cfg.Logger, err)
			return
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(result.Archive)))
		w.Header().Set("X-Export-ID", result.Summary.ExportID)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(result.Archive); err != nil {
			cfg.Logger.Warn("failed to write export archive", "export_id", result.Summary.ExportID, "error", err)
		}
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				WriteAppError(w, cfg.Logger, apperr.New(apperr.CodeValidation, "limit must be a positive integer"))
				return
			}
			limit = n
		}

		records, err := cfg.History.List(r.Context(), r.URL.Query().Get("episodeId"), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list exports", string(apperr.CodeInternal))
			return
		}

		resp := ExportsResponse{Exports: make([]ExportResponse, len(records))}
		for i, rec := range records {
			resp.Exports[i] = RecordToResponse(rec)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "exportID")

		rec, err := cfg.History.Get(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), string(apperr.CodeInternal))
			return
		}
		if rec == nil {
			WriteError(w, http.StatusNotFound, "export not found", string(apperr.CodeNotFound))
			return
		}

		WriteJSON(w, http.StatusOK, RecordToResponse(rec))
	}
}
