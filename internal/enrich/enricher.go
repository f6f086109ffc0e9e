// Package enrich fans book records out to concurrent cover lookups and
// collects the results back in input order.
package enrich

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strickvl/storygraph-rater/internal/covers"
	"github.com/strickvl/storygraph-rater/internal/entities"
)

// Resolver finds a verified cover URL for a book. An empty URL with a
// nil error means no cover exists; errors satisfying covers.IsTransient
// are retried.
type Resolver interface {
	Resolve(ctx context.Context, isbn, title, authors string) (string, error)
}

// CoverCache is an optional persistent cache of resolved cover URLs,
// keyed by CacheKey. Only hits are stored, so misses get retried on the
// next run.
type CoverCache interface {
	Get(key string) (coverURL string, found bool, err error)
	Put(key, coverURL string) error
}

// Config carries the knobs for the enrichment run. Everything has a
// sensible default via DefaultConfig; tests inject small values.
type Config struct {
	Workers     int           // concurrent cover lookups
	MaxRetries  int           // attempts per book before giving up
	BackoffBase time.Duration // first retry delay, doubled each attempt
	JitterMax   time.Duration // random extra delay added to each backoff
}

// DefaultConfig returns the production defaults: a small pool and slow
// retries, tuned for politeness to the metadata API rather than
// throughput.
func DefaultConfig() Config {
	return Config{
		Workers:     5,
		MaxRetries:  3,
		BackoffBase: time.Second,
		JitterMax:   time.Second,
	}
}

// Enricher attaches cover URLs to parsed book records.
type Enricher struct {
	resolver Resolver
	cache    CoverCache
	cfg      Config
}

// New creates an Enricher using the given resolver.
func New(resolver Resolver, cfg Config) *Enricher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	return &Enricher{
		resolver: resolver,
		cfg:      cfg,
	}
}

// SetCache sets the persistent cover-URL cache (optional).
func (e *Enricher) SetCache(cache CoverCache) {
	e.cache = cache
}

// Enrich returns a copy of books with cover URLs filled in where a
// verified cover could be found. Output order always matches input
// order; lookups run concurrently but each result is written to its own
// index. With skipCovers set no network calls happen at all.
func (e *Enricher) Enrich(ctx context.Context, books []entities.Book, skipCovers bool) []entities.Book {
	results := make([]entities.Book, len(books))
	copy(results, books)

	if skipCovers || len(books) == 0 {
		return results
	}

	jobs := make(chan int, len(books))
	var completed atomic.Int64

	var wg sync.WaitGroup
	for w := 0; w < e.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i].CoverURL = e.resolveWithRetry(ctx, results[i])

				done := completed.Add(1)
				if done%50 == 0 || done == int64(len(books)) {
					log.Printf("Processed %d/%d books", done, len(books))
				}
			}
		}()
	}

	for i := range books {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// resolveWithRetry resolves one book's cover, retrying transient
// failures with exponential backoff plus jitter. Exhausted retries and
// permanent failures both degrade to no cover; a single record never
// fails the run.
func (e *Enricher) resolveWithRetry(ctx context.Context, book entities.Book) string {
	key := CacheKey(book)
	if e.cache != nil {
		if coverURL, found, err := e.cache.Get(key); err == nil && found {
			return coverURL
		}
	}

	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if !e.sleepBackoff(ctx, attempt) {
				return ""
			}
		}

		coverURL, err := e.resolver.Resolve(ctx, book.ISBN, book.Title, book.Authors)
		if err == nil {
			if coverURL != "" && e.cache != nil {
				if cacheErr := e.cache.Put(key, coverURL); cacheErr != nil {
					log.Printf("Warning: failed to cache cover for %q: %v", book.Title, cacheErr)
				}
			}
			return coverURL
		}
		if !covers.IsTransient(err) {
			log.Printf("No cover for %q: %v", book.Title, err)
			return ""
		}
	}

	log.Printf("Giving up on cover for %q after %d attempts", book.Title, e.cfg.MaxRetries)
	return ""
}

// sleepBackoff waits 2^(attempt-1) * base plus up to JitterMax of random
// jitter, so workers retrying against the same rate-limited API don't
// synchronize. Returns false if the context was cancelled while waiting.
func (e *Enricher) sleepBackoff(ctx context.Context, attempt int) bool {
	delay := e.cfg.BackoffBase << uint(attempt-1)
	if e.cfg.JitterMax > 0 {
		delay += time.Duration(rand.Int63n(int64(e.cfg.JitterMax)))
	}

	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

// CacheKey identifies a book for cover-cache purposes: the ISBN when
// present, otherwise title plus authors.
func CacheKey(book entities.Book) string {
	if book.ISBN != "" {
		return "isbn:" + book.ISBN
	}
	return "search:" + book.Title + "|" + book.Authors
}
