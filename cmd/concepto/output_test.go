package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckOutputDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	tests := []struct {
		name    string
		dir     string
		wantErr string
	}{
		{"existing dir", dir, ""},
		{"blank", "  ", "required"},
		{"missing", filepath.Join(dir, "exports"), "does not exist"},
		{"regular file", file, "not a directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkOutputDir(tt.dir)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("checkOutputDir(%q) error = %v", tt.dir, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("checkOutputDir(%q) error = %v, want %q", tt.dir, err, tt.wantErr)
			}
		})
	}
}

func TestSaveArchive_WritesFile(t *testing.T) {
	dir := t.TempDir()

	path, err := saveArchive(dir, "av-editing-export-ep-1-1.zip", []byte("PK"))
	if err != nil {
		t.Fatalf("saveArchive() error = %v", err)
	}
	if path != filepath.Join(dir, "av-editing-export-ep-1-1.zip") {
		t.Errorf("path = %s", path)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "PK" {
		t.Fatalf("archive contents = %q, %v", got, err)
	}
}

func TestSaveArchive_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "av-editing-export-ep-1-1.zip")
	if err := os.WriteFile(existing, []byte("earlier export"), 0o644); err != nil {
		t.Fatalf("write existing: %v", err)
	}

	_, err := saveArchive(dir, "av-editing-export-ep-1-1.zip", []byte("PK"))
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("saveArchive() error = %v, want already exists", err)
	}
	got, _ := os.ReadFile(existing)
	if string(got) != "earlier export" {
		t.Errorf("existing archive was modified: %q", got)
	}
}

func TestSaveArchive_RejectsNestedName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"", "../escape.zip", "sub/archive.zip"} {
		if _, err := saveArchive(dir, name, []byte("PK")); err == nil {
			t.Errorf("saveArchive(%q) error = nil, want invalid name", name)
		}
	}
}
