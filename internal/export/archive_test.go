package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/concepto/concepto-av/internal/apperr"
)

func readZip(t *testing.T, b []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		t.Fatalf("archive is not a valid zip: %v", err)
	}
	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if _, dup := files[f.Name]; dup {
			t.Fatalf("duplicate entry %s", f.Name)
		}
		files[f.Name] = string(data)
	}
	return files
}

func TestWriteArchive_Layout(t *testing.T) {
	archive, err := WriteArchive(
		[]ArchiveEntry{{Name: DocumentName, Data: []byte("<fcpxml/>")}},
		[]ArchiveEntry{
			{Name: "image-1.jpg", Data: []byte("img")},
			{Name: "audio-1.mp3", Data: []byte("snd")},
			{Name: "image-1.jpg", Data: []byte("img")},
		},
		time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("WriteArchive() error = %v", err)
	}

	files := readZip(t, archive)
	var names []string
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	want := []string{"media/audio-1.mp3", "media/image-1.jpg", "timeline.fcpxml"}
	if len(names) != len(want) {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("entries = %v, want %v", names, want)
		}
	}
	if files["media/image-1.jpg"] != "img" || files[DocumentName] != "<fcpxml/>" {
		t.Fatalf("unexpected contents: %v", files)
	}
}

func TestArchiveFilename(t *testing.T) {
	ts := time.UnixMilli(1760000000123)
	tests := []struct {
		episode string
		want    string
	}{
		{"ep-42", "av-editing-export-ep-42-1760000000123.zip"},
		{"", "av-editing-export-episode-1760000000123.zip"},
		{"a/b\"c", "av-editing-export-a_b_c-1760000000123.zip"},
	}
	for _, tt := range tests {
		if got := ArchiveFilename(tt.episode, ts); got != tt.want {
			t.Errorf("ArchiveFilename(%q) = %q, want %q", tt.episode, got, tt.want)
		}
	}
}

func TestWriteArchive_WriterFailureIsPackagingError(t *testing.T) {
	root := []ArchiveEntry{{Name: DocumentName, Data: []byte("<fcpxml/>")}}
	media := []ArchiveEntry{{Name: "image-1.jpg", Data: bytes.Repeat([]byte("x"), 64<<10)}}

	err := writeArchive(failingWriter{}, root, media, time.Now())
	if !apperr.IsCode(err, apperr.CodePackaging) {
		t.Fatalf("writeArchive() error = %v, want PACKAGING_ERROR", err)
	}
	if !errors.Is(err, errDiskFull) {
		t.Errorf("writeArchive() error = %v, want cause preserved", err)
	}
}
