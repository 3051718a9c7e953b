package export

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/concepto/concepto-av/internal/logging"
	"github.com/concepto/concepto-av/internal/media"
)

// Fetched is an asset whose bytes were retrieved.
type Fetched struct {
	Asset
	Data []byte
}

// FetchResult partitions the attempted assets. Both slices keep input order.
type FetchResult struct {
	Succeeded []Fetched
	Failed    []string
}

// Fetcher retrieves every asset concurrently and waits for all attempts to
// settle. A failed URL is logged and recorded; it never cancels the others.
type Fetcher struct {
	client media.Fetcher
	limit  int
	logger *slog.Logger
}

// NewFetcher creates a fetcher. limit bounds in-flight fetches; zero or
// negative means unbounded.
func NewFetcher(client media.Fetcher, limit int, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{client: client, limit: limit, logger: logger}
}

func (f *Fetcher) FetchAll(ctx context.Context, assets []Asset) FetchResult {
	type outcome struct {
		data []byte
		err  error
	}
	outcomes := make([]outcome, len(assets))

	var g errgroup.Group
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}
	for i, a := range assets {
		g.Go(func() error {
			data, err := f.client.Fetch(ctx, a.URL)
			outcomes[i] = outcome{data: data, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var res FetchResult
	for i, a := range assets {
		o := outcomes[i]
		if o.err != nil {
			attrs := []any{
				"url", logging.SanitizeURL(a.URL),
				"filename", a.Filename,
				"error", o.err,
			}
			var fe *media.FetchError
			if errors.As(o.err, &fe) {
				attrs = append(attrs, "status", fe.StatusCode, "retryable", fe.IsRetryable())
			}
			f.logger.Warn("media fetch failed", attrs...)
			res.Failed = append(res.Failed, a.URL)
			continue
		}
		res.Succeeded = append(res.Succeeded, Fetched{Asset: a, Data: o.data})
	}
	return res
}
