package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/concepto/concepto-av/internal/export"
)

func exportRequest() export.Request {
	return export.Request{
		EpisodeID: "ep 12",
		Slides: []export.Slide{
			{ID: "s1", ImageURL: "https://cdn.test/a.png", StartTime: 0, Duration: 4},
			{ID: "s2", ImageURL: "https://cdn.test/b.png", StartTime: 4, Duration: 4},
		},
		AudioTracks: []export.AudioTrack{
			{ID: "t1", Name: "Narration", AudioURL: "https://cdn.test/vo.mp3", StartTime: 0, Duration: 8},
		},
		TotalDuration: 8,
	}
}

func TestExportAVEditing_ReturnsZip(t *testing.T) {
	env := newTestEnv(t, mapFetcher{
		"https://cdn.test/a.png":  []byte("png-a"),
		"https://cdn.test/b.png":  []byte("png-b"),
		"https://cdn.test/vo.mp3": []byte("mp3"),
	})

	rr := env.do(t, http.MethodPost, "/export/av-editing", exportRequest())

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q, want application/zip", ct)
	}
	disp := rr.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disp, `attachment; filename="av-editing-export-ep_12-`) || !strings.HasSuffix(disp, `.zip"`) {
		t.Errorf("Content-Disposition = %q", disp)
	}
	if rr.Header().Get("Content-Length") == "" {
		t.Error("Content-Length not set")
	}
	exportID := rr.Header().Get("X-Export-ID")
	if exportID == "" {
		t.Fatal("X-Export-ID not set")
	}

	body := rr.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{export.DocumentName, export.EDLName, "media/image-1.png", "media/image-2.png", "media/audio-1.mp3"} {
		if !names[want] {
			t.Errorf("archive missing %s, got %v", want, names)
		}
	}

	rr = env.do(t, http.MethodGet, "/exports/"+exportID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get export status = %d, want %d", rr.Code, http.StatusOK)
	}
	var rec ExportResponse
	if err := json.NewDecoder(rr.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Status != string(export.StatusCompleted) || rec.SlideCount != 2 || rec.AudioCount != 1 {
		t.Errorf("record = %+v", rec)
	}
}

func TestExportAVEditing_PartialFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(t, mapFetcher{
		"https://cdn.test/a.png": []byte("png-a"),
	})

	rr := env.do(t, http.MethodPost, "/export/av-editing", exportRequest())

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/exports?episodeId=ep+12", nil)
	var list ExportsResponse
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Exports) != 1 {
		t.Fatalf("exports = %d, want 1", len(list.Exports))
	}
	if got := list.Exports[0].FailedURLs; len(got) != 2 {
		t.Errorf("failedUrls = %v, want 2 entries", got)
	}
}

func TestExportAVEditing_AllFetchesFail(t *testing.T) {
	env := newTestEnv(t, mapFetcher{})

	rr := env.do(t, http.MethodPost, "/export/av-editing", exportRequest())

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "EXPORT_FATAL" {
		t.Errorf("code = %v, want EXPORT_FATAL", body["code"])
	}
	if details, _ := body["details"].(string); details != "3 media urls failed" {
		t.Errorf("details = %v, want failure count", body["details"])
	}

	rr = env.do(t, http.MethodGet, "/exports", nil)
	var list ExportsResponse
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Exports) != 1 || list.Exports[0].Status != string(export.StatusFailed) {
		t.Fatalf("exports = %+v, want one failed record", list.Exports)
	}
}

func TestExportAVEditing_Validation(t *testing.T) {
	env := newTestEnv(t, mapFetcher{})

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed json", `{"slides": [`},
		{"slides missing", `{"episodeId": "ep-1"}`},
		{"no usable urls", `{"episodeId": "ep-1", "slides": [{"id": "s1", "imageUrl": ""}], "audioTracks": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/export/av-editing", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-API-Key", testAPIKey)
			rr := httptest.NewRecorder()

			env.router.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
			}
			if body := decodeJSONBody(t, rr); body["code"] != "VALIDATION_ERROR" {
				t.Errorf("code = %v, want VALIDATION_ERROR", body["code"])
			}
		})
	}
}

func TestExportAVEditing_Preflight(t *testing.T) {
	env := newTestEnv(t, mapFetcher{})

	req := httptest.NewRequest(http.MethodOptions, "/export/av-editing", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()

	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if !containsHeader(rr.Header().Get("Access-Control-Allow-Methods"), "POST") {
		t.Errorf("Access-Control-Allow-Methods = %q", rr.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestListExports_InvalidLimit(t *testing.T) {
	env := newTestEnv(t, mapFetcher{})

	rr := env.do(t, http.MethodGet, "/exports?limit=zero", nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetExport_NotFound(t *testing.T) {
	env := newTestEnv(t, mapFetcher{})

	rr := env.do(t, http.MethodGet, "/exports/does-not-exist", nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "NOT_FOUND") {
		t.Errorf("body = %s", body)
	}
}
