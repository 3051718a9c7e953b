// Package media retrieves the bytes behind an image or audio reference.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultUserAgent = "Concepto-AV-Export/1.0"
	DefaultTimeout   = 60 * time.Second
	DefaultMaxBytes  = 256 << 20
)

// ErrTooLarge is returned when a payload exceeds the configured size cap.
var ErrTooLarge = errors.New("media exceeds size limit")

// Fetcher fetches the bytes for one media URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FetchError represents a non-success response from a media host.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("media fetch failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx).
// Client errors (4xx) are considered permanent.
func (e *FetchError) IsRetryable() bool {
	return e.StatusCode >= 500
}

type Options struct {
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
}

// HTTPClient fetches http(s) URLs over the network and decodes data: URLs
// in memory.
type HTTPClient struct {
	userAgent  string
	maxBytes   int64
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(opts Options, logger *slog.Logger) *HTTPClient {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPClient{
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger: logger,
	}
}

func (c *HTTPClient) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if IsDataURL(rawURL) {
		data, err := DecodeDataURL(rawURL)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > c.maxBytes {
			return nil, ErrTooLarge
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Concepto-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, ErrTooLarge
	}

	c.logger.Debug("media fetched", "bytes", len(data), "content_type", resp.Header.Get("Content-Type"))
	return data, nil
}

func IsDataURL(rawURL string) bool {
	return len(rawURL) >= 5 && strings.EqualFold(rawURL[:5], "data:")
}

// DataURLMediaType returns the media type of a data: URL, e.g. "image/png".
func DataURLMediaType(rawURL string) string {
	if !IsDataURL(rawURL) {
		return ""
	}
	header, _, ok := strings.Cut(rawURL[5:], ",")
	if !ok {
		return ""
	}
	mediaType, _, _ := strings.Cut(header, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// DecodeDataURL returns the payload after the comma, base64-decoded when the
// header says so and percent-decoded otherwise.
func DecodeDataURL(rawURL string) ([]byte, error) {
	if !IsDataURL(rawURL) {
		return nil, fmt.Errorf("not a data url")
	}
	header, payload, ok := strings.Cut(rawURL[5:], ",")
	if !ok {
		return nil, fmt.Errorf("malformed data url: missing comma")
	}

	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some producers drop the padding.
			if data, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr == nil {
				return data, nil
			}
			return nil, fmt.Errorf("decode data url: %w", err)
		}
		return data, nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return []byte(decoded), nil
}
