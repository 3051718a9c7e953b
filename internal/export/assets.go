package export

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/concepto/concepto-av/internal/media"
)

type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

func (k Kind) DefaultExt() string {
	if k == KindAudio {
		return "mp3"
	}
	return "jpg"
}

// Asset is one distinct media reference and the archive filename it got.
type Asset struct {
	URL      string
	Filename string
	Kind     Kind
}

// AssetMap is a stable URL → filename mapping for one kind of media.
type AssetMap struct {
	kind   Kind
	byURL  map[string]int
	assets []Asset
}

// Resolve assigns "<kind>-<n>.<ext>" to every distinct URL in first-encounter
// order. Repeated URLs reuse the filename of their first occurrence; empty
// URLs are skipped.
func Resolve(urls []string, kind Kind) *AssetMap {
	m := &AssetMap{kind: kind, byURL: make(map[string]int)}
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := m.byURL[u]; ok {
			continue
		}
		m.byURL[u] = len(m.assets)
		m.assets = append(m.assets, Asset{
			URL:      u,
			Filename: fmt.Sprintf("%s-%d.%s", kind, len(m.assets)+1, ExtensionFor(u, kind)),
			Kind:     kind,
		})
	}
	return m
}

func (m *AssetMap) Filename(u string) (string, bool) {
	i, ok := m.byURL[u]
	if !ok {
		return "", false
	}
	return m.assets[i].Filename, true
}

func (m *AssetMap) Assets() []Asset {
	return append([]Asset(nil), m.assets...)
}

func (m *AssetMap) Len() int {
	return len(m.assets)
}

var mimeExtensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/jpg":     "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
	"audio/mpeg":    "mp3",
	"audio/mp3":     "mp3",
	"audio/wav":     "wav",
	"audio/x-wav":   "wav",
	"audio/wave":    "wav",
	"audio/ogg":     "ogg",
	"audio/aac":     "aac",
	"audio/mp4":     "m4a",
	"audio/x-m4a":   "m4a",
	"audio/webm":    "webm",
}

// ExtensionFor derives a file extension from the URL's path suffix, or from
// the media type of a data: URL, falling back to the kind's default.
func ExtensionFor(rawURL string, kind Kind) string {
	if media.IsDataURL(rawURL) {
		if ext, ok := mimeExtensions[media.DataURLMediaType(rawURL)]; ok {
			return ext
		}
		return kind.DefaultExt()
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return kind.DefaultExt()
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if !validExt(ext) {
		return kind.DefaultExt()
	}
	return ext
}

func validExt(ext string) bool {
	if len(ext) == 0 || len(ext) > 5 {
		return false
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
