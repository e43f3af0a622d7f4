package booksapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"

	"github.com/onnwee/spectacles-xix/testutil"
)

type memCache struct {
	mu     sync.Mutex
	m      map[string]Result
	getErr error
	sets   int
}

func newMemCache() *memCache { return &memCache{m: map[string]Result{}} }

func (c *memCache) Get(_ context.Context, q string) (Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return Result{}, false, c.getErr
	}
	r, ok := c.m[q]
	return r, ok, nil
}

func (c *memCache) Set(_ context.Context, q string, r Result, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[q] = r
	c.sets++
	return nil
}

func newTestClient(t *testing.T, srv *testutil.MockServer, cache Cache) *Client {
	t.Helper()
	c, err := New(context.Background(), cache, time.Hour,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func volumesHandler(t *testing.T, body map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "intitle:La Dame blanche inauthor:Scribe" {
			t.Errorf("q = %q", q.Get("q"))
		}
		if q.Get("filter") != "free-ebooks" || q.Get("langRestrict") != "fr" {
			t.Errorf("filter/langRestrict = %q/%q", q.Get("filter"), q.Get("langRestrict"))
		}
		testutil.WriteJSON(w, http.StatusOK, body)
	}
}

func TestSearchFound(t *testing.T) {
	srv := testutil.NewMockServer(t)
	srv.Handle(http.MethodGet, "/books/v1/volumes", volumesHandler(t, map[string]any{
		"totalItems": 2,
		"items": []map[string]any{
			{"volumeInfo": map[string]any{
				"previewLink": "http://books.google.com/books?id=1&dq=x&hl=fr",
				"imageLinks":  map[string]string{"thumbnail": "http://books.google.com/c?id=1&zoom=1&edge=curl"},
			}},
			{"volumeInfo": map[string]any{"previewLink": "http://second"}},
		},
	}))
	cache := newMemCache()
	c := newTestClient(t, srv, cache)

	r, err := c.Search(context.Background(), "La Dame blanche", "Scribe")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if r.BookURL != "http://books.google.com/books?id=1&dq=x&hl=fr" {
		t.Errorf("BookURL = %q", r.BookURL)
	}
	if r.BetterImageURL() != "http://books.google.com/c?id=1&zoom=3" {
		t.Errorf("BetterImageURL = %q", r.BetterImageURL())
	}

	// served from cache
	if _, err := c.Search(context.Background(), "La Dame blanche", "Scribe"); err != nil {
		t.Fatal(err)
	}
	if n := srv.HitCount(http.MethodGet, "/books/v1/volumes"); n != 1 {
		t.Errorf("API hits = %d, want 1", n)
	}
}

func TestSearchNoItems(t *testing.T) {
	srv := testutil.NewMockServer(t)
	srv.Handle(http.MethodGet, "/books/v1/volumes", volumesHandler(t, map[string]any{"totalItems": 0}))
	cache := newMemCache()
	c := newTestClient(t, srv, cache)

	r, err := c.Search(context.Background(), "La Dame blanche", "Scribe")
	if err != nil || !r.Empty() {
		t.Fatalf("Search() = %+v, %v", r, err)
	}
	if cache.sets != 1 {
		t.Error("empty results should be cached too")
	}
}

func TestSearchCacheErrorFallsThrough(t *testing.T) {
	srv := testutil.NewMockServer(t)
	srv.Handle(http.MethodGet, "/books/v1/volumes", volumesHandler(t, map[string]any{"totalItems": 0}))
	cache := newMemCache()
	cache.getErr = errors.New("redis down")

	if _, err := newTestClient(t, srv, cache).Search(context.Background(), "La Dame blanche", "Scribe"); err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if srv.HitCount(http.MethodGet, "/books/v1/volumes") != 1 {
		t.Error("API should be queried when the cache fails")
	}
}

func TestLookupSwallowsErrors(t *testing.T) {
	srv := testutil.NewMockServer(t)
	srv.JSON(http.MethodGet, "/books/v1/volumes", http.StatusForbidden, map[string]any{
		"error": map[string]any{"code": 403, "message": "quota"},
	})
	c := newTestClient(t, srv, nil)

	if _, err := c.Search(context.Background(), "La Dame blanche", "Scribe"); err == nil {
		t.Error("Search() should fail on 403")
	}
	if r := c.Lookup(context.Background(), "La Dame blanche", "Scribe"); !r.Empty() {
		t.Errorf("Lookup() = %+v, want empty", r)
	}
}

func TestFetchImage(t *testing.T) {
	srv := testutil.NewMockServer(t)
	srv.Handle(http.MethodGet, "/cover", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("zoom") != "3" || strings.Contains(r.URL.RawQuery, "edge") {
			t.Errorf("cover not enlarged: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte("PNGDATA"))
	})
	c := newTestClient(t, srv, nil)

	b, err := c.FetchImage(context.Background(), Result{ImageURL: srv.URL + "/cover?zoom=1&edge=curl"})
	if err != nil || string(b) != "PNGDATA" {
		t.Fatalf("FetchImage() = %q, %v", b, err)
	}
	b, err = c.FetchImage(context.Background(), Result{})
	if err != nil || b != nil {
		t.Errorf("FetchImage(empty) = %v, %v", b, err)
	}
	if _, err := c.FetchImage(context.Background(), Result{ImageURL: srv.URL + "/missing"}); err == nil {
		t.Error("expected error on 404")
	}
}

func TestClientOptions(t *testing.T) {
	if n := len(ClientOptions("/path/sa.json", "key")); n != 2 {
		t.Errorf("service account options = %d, want 2", n)
	}
	if n := len(ClientOptions("", "key")); n != 1 {
		t.Errorf("api key options = %d, want 1", n)
	}
	if ClientOptions("", "") != nil {
		t.Error("no credentials should fall back to ADC")
	}
}
