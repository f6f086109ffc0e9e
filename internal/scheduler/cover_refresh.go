// Package scheduler periodically retries cover lookups for artifact
// records that are still missing one.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/strickvl/storygraph-rater/internal/enrich"
	"github.com/strickvl/storygraph-rater/internal/entities"
	"github.com/strickvl/storygraph-rater/internal/output"
)

// CoverRefreshScheduler re-runs cover enrichment for books without a
// cover on a cron schedule. Covers appear on OpenLibrary over time, so
// a book that had none at process time may get one later.
type CoverRefreshScheduler struct {
	enricher  *enrich.Enricher
	booksPath string
	schedule  string

	cron         *cron.Cron
	entryID      cron.EntryID
	mu           sync.RWMutex
	isRunning    bool
	isRefreshing bool
	cancelFunc   context.CancelFunc
}

// NewCoverRefreshScheduler creates a new scheduler instance.
func NewCoverRefreshScheduler(enricher *enrich.Enricher, booksPath, schedule string) *CoverRefreshScheduler {
	return &CoverRefreshScheduler{
		enricher:  enricher,
		booksPath: booksPath,
		schedule:  schedule,
		cron:      cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *CoverRefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runRefresh()
	})
	if err != nil {
		return fmt.Errorf("invalid cover refresh schedule '%s': %w", s.schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Cover refresh scheduler: started with schedule '%s'", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running refresh to
// complete.
func (s *CoverRefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Cover refresh scheduler: stopped")
}

// RunNow triggers an immediate refresh.
func (s *CoverRefreshScheduler) RunNow() {
	go s.runRefresh()
}

// IsRunning returns whether the scheduler is active.
func (s *CoverRefreshScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *CoverRefreshScheduler) runRefresh() {
	s.mu.Lock()
	if s.isRefreshing {
		s.mu.Unlock()
		log.Printf("Cover refresh: previous run still in progress, skipping")
		return
	}
	s.isRefreshing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRefreshing = false
		s.mu.Unlock()
	}()

	if err := s.refresh(context.Background()); err != nil {
		log.Printf("Cover refresh failed: %v", err)
	}
}

// refresh loads the artifact, re-resolves books without covers, and
// rewrites the artifact if anything new was found.
func (s *CoverRefreshScheduler) refresh(ctx context.Context) error {
	books, err := output.ReadBooks(s.booksPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("Cover refresh: no book artifact at %s yet, skipping", s.booksPath)
		return nil
	}
	if err != nil {
		return err
	}

	var missing []int
	for i, book := range books {
		if book.CoverURL == "" {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		log.Printf("Cover refresh: all %d books have covers", len(books))
		return nil
	}

	log.Printf("Cover refresh: retrying %d/%d books without covers", len(missing), len(books))

	subset := make([]entities.Book, len(missing))
	for i, idx := range missing {
		subset[i] = books[idx]
	}

	enriched := s.enricher.Enrich(ctx, subset, false)

	found := 0
	for i, idx := range missing {
		if enriched[i].CoverURL != "" {
			books[idx].CoverURL = enriched[i].CoverURL
			found++
		}
	}
	if found == 0 {
		log.Printf("Cover refresh: no new covers found")
		return nil
	}

	if err := output.WriteBooks(s.booksPath, books); err != nil {
		return err
	}

	log.Printf("Cover refresh: found %d new covers", found)
	return nil
}
