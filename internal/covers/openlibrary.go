// Package covers resolves verified book cover URLs from the OpenLibrary
// API, by ISBN when possible and by title/author search otherwise.
package covers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://openlibrary.org"
	defaultCoversURL = "https://covers.openlibrary.org"

	userAgent = "storygraph-rater/1.0 (polite crawler)"

	// OpenLibrary serves a tiny 1x1 placeholder for ISBNs it has no
	// cover for; real covers are well over 1KB.
	placeholderMinBytes = 1000
)

// transientErr marks failures worth retrying: timeouts, connection
// errors, rate limiting, server errors. Everything else is a permanent
// miss and resolves to no cover immediately.
type transientErr struct {
	err error
}

func (e *transientErr) Error() string   { return e.err.Error() }
func (e *transientErr) Unwrap() error   { return e.err }
func (e *transientErr) Temporary() bool { return true }

// IsTransient reports whether err represents a failure that may succeed
// on retry. Any error exposing Temporary() true qualifies, following the
// net.Error convention.
func IsTransient(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

// Client looks up covers against the OpenLibrary API. It is safe for
// concurrent use; the rate limiter is the only shared state.
type Client struct {
	httpClient *http.Client
	baseURL    string
	coversURL  string
	limiter    *rate.Limiter
}

// NewClient creates an OpenLibrary cover client with a per-call timeout
// and a politeness cap on request rate shared across all workers.
func NewClient(requestTimeout time.Duration, requestsPerSecond float64) *Client {
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		baseURL:   defaultBaseURL,
		coversURL: defaultCoversURL,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Resolve finds a verified cover URL for a book. The ISBN lookup is
// tried first; if it yields nothing the title/author search is used.
// A return of ("", nil) means no cover exists for this book - that is a
// terminal state, not an error. Errors satisfying IsTransient are worth
// retrying.
func (c *Client) Resolve(ctx context.Context, isbn, title, authors string) (string, error) {
	if isbn != "" {
		coverURL, err := c.verifyISBNCover(ctx, isbn)
		if err == nil && coverURL != "" {
			return coverURL, nil
		}
		// Lookup errors fall through to search; the search result (or
		// its transient failure) decides the record's fate.
	}

	if title == "" {
		return "", nil
	}

	return c.searchCover(ctx, title, authors)
}

// verifyISBNCover checks whether OpenLibrary has a real (non-placeholder)
// cover for the ISBN and returns its URL if so.
func (c *Client) verifyISBNCover(ctx context.Context, isbn string) (string, error) {
	coverURL := fmt.Sprintf("%s/b/isbn/%s-M.jpg", c.coversURL, isbn)

	ok, err := c.probe(ctx, coverURL)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return coverURL, nil
}

// searchCover queries the text search endpoint and verifies the first
// match's cover. Taking the first document keeps the fallback
// deterministic for identical input.
func (c *Client) searchCover(ctx context.Context, title, authors string) (string, error) {
	query := url.QueryEscape(title + " " + authors)
	searchURL := fmt.Sprintf("%s/search.json?q=%s&limit=1", c.baseURL, query)

	resp, err := c.get(ctx, searchURL)
	if err != nil {
		return "", &transientErr{fmt.Errorf("search books: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if retryableStatus(resp.StatusCode) {
			return "", &transientErr{fmt.Errorf("search status %d", resp.StatusCode)}
		}
		return "", nil
	}

	var result searchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	if len(result.Docs) == 0 {
		return "", nil
	}

	doc := result.Docs[0]
	var coverURL string
	switch {
	case doc.CoverI != 0:
		coverURL = fmt.Sprintf("%s/b/id/%d-M.jpg", c.coversURL, doc.CoverI)
	case len(doc.ISBN) > 0:
		coverURL = fmt.Sprintf("%s/b/isbn/%s-M.jpg", c.coversURL, doc.ISBN[0])
	default:
		return "", nil
	}

	ok, err := c.probe(ctx, coverURL)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return coverURL, nil
}

// probe issues a HEAD request and accepts the URL only if the reported
// size is above the placeholder threshold. No image bytes are fetched.
func (c *Client) probe(ctx context.Context, coverURL string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, coverURL, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &transientErr{fmt.Errorf("probe cover: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if retryableStatus(resp.StatusCode) {
			return false, &transientErr{fmt.Errorf("probe status %d", resp.StatusCode)}
		}
		return false, nil
	}

	size, err := strconv.Atoi(resp.Header.Get("Content-Length"))
	if err != nil {
		return false, nil
	}
	return size > placeholderMinBytes, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	return c.httpClient.Do(req)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// OpenLibrary search response (internal)

type searchResult struct {
	NumFound int         `json:"numFound"`
	Docs     []searchDoc `json:"docs"`
}

type searchDoc struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	ISBN       []string `json:"isbn"`
	CoverI     int      `json:"cover_i"`
}
