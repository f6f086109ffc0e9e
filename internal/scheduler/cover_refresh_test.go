package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/strickvl/storygraph-rater/internal/enrich"
	"github.com/strickvl/storygraph-rater/internal/entities"
	"github.com/strickvl/storygraph-rater/internal/output"
)

type staticResolver struct {
	coverFor map[string]string
	calls    int
}

func (r *staticResolver) Resolve(ctx context.Context, isbn, title, authors string) (string, error) {
	r.calls++
	return r.coverFor[title], nil
}

func testEnricher(resolver enrich.Resolver) *enrich.Enricher {
	return enrich.New(resolver, enrich.Config{
		Workers:     2,
		MaxRetries:  1,
		BackoffBase: time.Millisecond,
	})
}

func TestRefreshFillsMissingCovers(t *testing.T) {
	booksPath := filepath.Join(t.TempDir(), "books.json")
	books := []entities.Book{
		{ID: "book_0", Title: "Dune", YearRead: 2020, DatePrecision: entities.PrecisionDay, CoverURL: "https://covers.example/existing.jpg"},
		{ID: "book_1", Title: "Piranesi", YearRead: 2021, DatePrecision: entities.PrecisionDay},
	}
	if err := output.WriteBooks(booksPath, books); err != nil {
		t.Fatal(err)
	}

	resolver := &staticResolver{coverFor: map[string]string{"Piranesi": "https://covers.example/piranesi.jpg"}}
	s := NewCoverRefreshScheduler(testEnricher(resolver), booksPath, "0 * * * *")

	if err := s.refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	// Only the coverless book goes back to the resolver.
	if resolver.calls != 1 {
		t.Errorf("resolver called %d times, expected 1", resolver.calls)
	}

	updated, err := output.ReadBooks(booksPath)
	if err != nil {
		t.Fatal(err)
	}
	if updated[0].CoverURL != "https://covers.example/existing.jpg" {
		t.Errorf("existing cover was touched: %q", updated[0].CoverURL)
	}
	if updated[1].CoverURL != "https://covers.example/piranesi.jpg" {
		t.Errorf("missing cover not refreshed: %q", updated[1].CoverURL)
	}
}

func TestRefreshWithoutArtifact(t *testing.T) {
	s := NewCoverRefreshScheduler(testEnricher(&staticResolver{}), filepath.Join(t.TempDir(), "books.json"), "0 * * * *")
	if err := s.refresh(context.Background()); err != nil {
		t.Fatalf("missing artifact must not error: %v", err)
	}
}
