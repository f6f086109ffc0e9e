package enrich

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/strickvl/storygraph-rater/internal/entities"
)

// fakeResolver resolves covers from a fixed map, optionally failing a
// number of times per book first. Call counts are tracked per key.
type fakeResolver struct {
	mu       sync.Mutex
	coverFor map[string]string // title -> cover URL
	failures map[string]int    // title -> transient failures before success
	calls    map[string]int
	delay    time.Duration
}

// fakeTransient satisfies covers.IsTransient via the Temporary
// convention, without needing an HTTP round trip.
type fakeTransient struct{ msg string }

func (e *fakeTransient) Error() string   { return e.msg }
func (e *fakeTransient) Temporary() bool { return true }

func transientResolveError(title string) error {
	return &fakeTransient{msg: "lookup for " + title + " timed out"}
}

func (f *fakeResolver) Resolve(ctx context.Context, isbn, title, authors string) (string, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[title]++
	remaining := f.failures[title]
	if remaining > 0 {
		f.failures[title]--
	}
	f.mu.Unlock()

	if f.delay > 0 {
		// Randomized delay shakes up completion order across workers.
		time.Sleep(time.Duration(rand.Int63n(int64(f.delay))))
	}

	if remaining > 0 {
		return "", transientResolveError(title)
	}
	return f.coverFor[title], nil
}

func (f *fakeResolver) callCount(title string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[title]
}

func (f *fakeResolver) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func makeBooks(n int) []entities.Book {
	books := make([]entities.Book, n)
	for i := range books {
		books[i] = entities.Book{
			ID:       fmt.Sprintf("book_%d", i),
			Title:    fmt.Sprintf("Book %d", i),
			Authors:  "Author",
			YearRead: 2020,
		}
	}
	return books
}

func testConfig() Config {
	return Config{
		Workers:     4,
		MaxRetries:  3,
		BackoffBase: time.Millisecond,
		JitterMax:   time.Millisecond,
	}
}

func TestEnrichPreservesOrder(t *testing.T) {
	books := makeBooks(40)
	resolver := &fakeResolver{
		coverFor: make(map[string]string),
		delay:    2 * time.Millisecond,
	}
	for _, b := range books {
		resolver.coverFor[b.Title] = "https://covers.example/" + b.ID + ".jpg"
	}

	enricher := New(resolver, testConfig())
	results := enricher.Enrich(context.Background(), books, false)

	if len(results) != len(books) {
		t.Fatalf("output length %d != input length %d", len(results), len(books))
	}
	for i, got := range results {
		if got.ID != books[i].ID {
			t.Fatalf("results[%d].ID = %q, expected %q", i, got.ID, books[i].ID)
		}
		want := "https://covers.example/" + books[i].ID + ".jpg"
		if got.CoverURL != want {
			t.Errorf("results[%d].CoverURL = %q, expected %q", i, got.CoverURL, want)
		}
	}
}

func TestEnrichSkipCovers(t *testing.T) {
	books := makeBooks(10)
	resolver := &fakeResolver{coverFor: map[string]string{}}

	enricher := New(resolver, testConfig())
	results := enricher.Enrich(context.Background(), books, true)

	if resolver.totalCalls() != 0 {
		t.Errorf("skip-covers run made %d resolver calls, expected 0", resolver.totalCalls())
	}
	for i, b := range results {
		if b.CoverURL != "" {
			t.Errorf("results[%d] has a cover with covers skipped: %q", i, b.CoverURL)
		}
	}
}

func TestEnrichRetriesTransientFailures(t *testing.T) {
	books := makeBooks(1)
	resolver := &fakeResolver{
		coverFor: map[string]string{"Book 0": "https://covers.example/0.jpg"},
		failures: map[string]int{"Book 0": 2}, // below the cap of 3 attempts
	}

	enricher := New(resolver, testConfig())
	results := enricher.Enrich(context.Background(), books, false)

	if results[0].CoverURL != "https://covers.example/0.jpg" {
		t.Errorf("cover not resolved after transient failures: %q", results[0].CoverURL)
	}
	if got := resolver.callCount("Book 0"); got != 3 {
		t.Errorf("resolver called %d times, expected 3", got)
	}
}

func TestEnrichGivesUpAtRetryCap(t *testing.T) {
	books := makeBooks(1)
	resolver := &fakeResolver{
		coverFor: map[string]string{"Book 0": "https://covers.example/0.jpg"},
		failures: map[string]int{"Book 0": 5}, // above the cap
	}

	cfg := testConfig()
	start := time.Now()
	enricher := New(resolver, cfg)
	results := enricher.Enrich(context.Background(), books, false)
	elapsed := time.Since(start)

	if results[0].CoverURL != "" {
		t.Errorf("cover must be absent after exhausted retries, got %q", results[0].CoverURL)
	}
	if got := resolver.callCount("Book 0"); got != cfg.MaxRetries {
		t.Errorf("resolver called %d times, expected %d", got, cfg.MaxRetries)
	}

	// Backoffs are 1ms and 2ms plus up to 1ms jitter each; the whole
	// run has to be well inside a second.
	if elapsed > time.Second {
		t.Errorf("retries took %v, expected bounded backoff", elapsed)
	}
}

func TestEnrichCacheHitSkipsResolver(t *testing.T) {
	books := makeBooks(1)
	books[0].ISBN = "9780441013593"
	resolver := &fakeResolver{coverFor: map[string]string{}}
	cache := &fakeCache{
		entries: map[string]string{"isbn:9780441013593": "https://covers.example/cached.jpg"},
	}

	enricher := New(resolver, testConfig())
	enricher.SetCache(cache)
	results := enricher.Enrich(context.Background(), books, false)

	if results[0].CoverURL != "https://covers.example/cached.jpg" {
		t.Errorf("cached cover not used: %q", results[0].CoverURL)
	}
	if resolver.totalCalls() != 0 {
		t.Errorf("resolver called %d times despite cache hit", resolver.totalCalls())
	}
}

func TestEnrichCacheStoresHits(t *testing.T) {
	books := makeBooks(1)
	resolver := &fakeResolver{
		coverFor: map[string]string{"Book 0": "https://covers.example/0.jpg"},
	}
	cache := &fakeCache{entries: map[string]string{}}

	enricher := New(resolver, testConfig())
	enricher.SetCache(cache)
	enricher.Enrich(context.Background(), books, false)

	if got := cache.entries[CacheKey(books[0])]; got != "https://covers.example/0.jpg" {
		t.Errorf("resolved cover not cached, cache holds %q", got)
	}
	if cache.puts.Load() != 1 {
		t.Errorf("cache.Put called %d times, expected 1", cache.puts.Load())
	}
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	puts    atomic.Int64
}

func (c *fakeCache) Get(key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url, ok := c.entries[key]
	return url, ok, nil
}

func (c *fakeCache) Put(key, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts.Add(1)
	c.entries[key] = url
	return nil
}
