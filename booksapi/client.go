package booksapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	books "google.golang.org/api/books/v1"
	"google.golang.org/api/option"

	"github.com/onnwee/spectacles-xix/telemetry"
)

const (
	freeEbooks = "free-ebooks"
	langFrench = "fr"
	// maxImageBytes bounds a cover download.
	maxImageBytes = 10 << 20
)

// Query builds the volumes.list search term.
func Query(title, author string) string {
	return fmt.Sprintf("intitle:%s inauthor:%s", title, author)
}

// ClientOptions picks credentials: a service account file, else an API key,
// else application default credentials.
func ClientOptions(serviceAccountFile, apiKey string) []option.ClientOption {
	switch {
	case serviceAccountFile != "":
		return []option.ClientOption{
			option.WithCredentialsFile(serviceAccountFile),
			option.WithScopes(books.BooksScope),
		}
	case apiKey != "":
		return []option.ClientOption{option.WithAPIKey(apiKey)}
	}
	return nil
}

// Client searches the Books API, consulting Cache first when set.
type Client struct {
	svc      *books.Service
	http     *http.Client
	cache    Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// New builds a client. opts usually come from ClientOptions.
func New(ctx context.Context, cache Cache, cacheTTL time.Duration, opts ...option.ClientOption) (*Client, error) {
	svc, err := books.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create books service: %w", err)
	}
	return &Client{
		svc:      svc,
		http:     &http.Client{Timeout: 30 * time.Second},
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   slog.Default().With(slog.String("component", "booksapi")),
	}, nil
}

// Search returns the first free French volume matching title and author.
func (c *Client) Search(ctx context.Context, title, author string) (Result, error) {
	q := Query(title, author)
	if c.cache != nil {
		if r, ok, err := c.cache.Get(ctx, q); err != nil {
			c.logger.Warn("book cache read failed", slog.Any("err", err))
		} else if ok {
			telemetry.RecordBookLookup("cached")
			return r, nil
		}
	}

	c.logger.Info("checking Google Books", slog.String("title", title))
	resp, err := c.svc.Volumes.List(q).Filter(freeEbooks).LangRestrict(langFrench).Context(ctx).Do()
	if err != nil {
		telemetry.RecordBookLookup("error")
		return Result{}, fmt.Errorf("books volumes.list: %w", err)
	}
	r := fromVolumes(resp)
	if r.Empty() {
		telemetry.RecordBookLookup("miss")
	} else {
		telemetry.RecordBookLookup("hit")
		c.logger.Info("found book", slog.String("url", r.BookURL))
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, q, r, c.cacheTTL); err != nil {
			c.logger.Warn("book cache write failed", slog.Any("err", err))
		}
	}
	return r, nil
}

// Lookup is Search with failures logged and turned into an empty result.
func (c *Client) Lookup(ctx context.Context, title, author string) Result {
	r, err := c.Search(ctx, title, author)
	if err != nil {
		c.logger.Error("book lookup failed", slog.String("title", title), slog.Any("err", err))
		return Result{}
	}
	return r
}

func fromVolumes(resp *books.Volumes) Result {
	if resp == nil || resp.TotalItems == 0 || len(resp.Items) == 0 {
		return Result{}
	}
	info := resp.Items[0].VolumeInfo
	if info == nil {
		return Result{}
	}
	r := Result{BookURL: info.PreviewLink}
	if info.ImageLinks != nil {
		r.ImageURL = info.ImageLinks.Thumbnail
	}
	return r
}

// FetchImage downloads the enlarged cover. It returns nil when the result
// has no image.
func (c *Client) FetchImage(ctx context.Context, r Result) ([]byte, error) {
	link := r.BetterImageURL()
	if link == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return b, nil
}
