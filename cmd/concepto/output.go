package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// checkOutputDir runs before any media is fetched so a bad --out fails fast.
func checkOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("output dir is required")
	}
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("output dir does not exist: %s", dir)
	case err != nil:
		return fmt.Errorf("stat output dir: %w", err)
	case !info.IsDir():
		return fmt.Errorf("output dir is not a directory: %s", dir)
	}
	return nil
}

// saveArchive writes data as dir/name and returns the path. An existing file
// is never replaced; a partial file is removed on error.
func saveArchive(dir, name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid archive name %q", name)
	}
	target := filepath.Join(dir, name)

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("archive already exists: %s", target)
	}
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("close archive: %w", err)
	}
	return target, nil
}
