package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/concepto/concepto-av/internal/apperr"
)

const mediaDir = "media"

// ArchiveEntry is one file to place in the export archive.
type ArchiveEntry struct {
	Name string
	Data []byte
}

// WriteArchive zips root entries at the archive root and media entries under
// media/. A media filename is written once even if listed twice. Any failure
// is a PACKAGING_ERROR and no partial archive is returned.
func WriteArchive(root, mediaFiles []ArchiveEntry, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeArchive(&buf, root, mediaFiles, modified); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeArchive(out io.Writer, root, mediaFiles []ArchiveEntry, modified time.Time) error {
	zw := zip.NewWriter(out)

	write := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	}

	for _, e := range root {
		if err := write(e.Name, e.Data); err != nil {
			zw.Close()
			return apperr.Wrap(apperr.CodePackaging, err, "failed to build archive")
		}
	}

	seen := make(map[string]bool, len(mediaFiles))
	for _, e := range mediaFiles {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		if err := write(path.Join(mediaDir, e.Name), e.Data); err != nil {
			zw.Close()
			return apperr.Wrap(apperr.CodePackaging, err, "failed to build archive")
		}
	}

	if err := zw.Close(); err != nil {
		return apperr.Wrap(apperr.CodePackaging, fmt.Errorf("finalize archive: %w", err), "failed to build archive")
	}
	return nil
}

// ArchiveFilename returns av-editing-export-<episodeId>-<unixMillis>.zip.
func ArchiveFilename(episodeID string, t time.Time) string {
	return fmt.Sprintf("av-editing-export-%s-%d.zip", fileToken(episodeID), t.UnixMilli())
}
