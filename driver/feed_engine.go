// ABOUTME: Generic feed engine: discovery, one-shot download and batch refresh via gofeed
// ABOUTME: Discovery falls back to an HTML scan for alternate links when the URL is not itself a feed

package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/HieuLsw/NetNewsWire/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

// ErrNoFeedsFound is returned when discovery finds nothing usable at a URL.
var ErrNoFeedsFound = errors.New("no feeds found at URL")

// Candidate quality scores. A direct feed parse beats any link found by
// scanning HTML; among scanned links the format decides.
const (
	scoreDirectFeed = 100
	scoreAtomLink   = 30
	scoreRSSLink    = 25
	scoreJSONLink   = 20
)

const defaultRefreshConcurrency = 5

// ChangeSetBuilder classifies parsed items into a changeset against the
// local store. Implemented by the account store; injected so the engine
// stays free of storage concerns.
type ChangeSetBuilder interface {
	BuildChangeSet(ctx context.Context, feed *models.Feed, items []models.ParsedItem) (*models.ArticleChangeSet, error)
}

// GofeedEngine implements generic feed discovery and refresh on top of
// the gofeed parser.
type GofeedEngine struct {
	httpClient  *http.Client
	builder     ChangeSetBuilder
	logger      *slog.Logger
	userAgent   string
	concurrency int
}

// NewGofeedEngine creates a feed engine.
func NewGofeedEngine(builder ChangeSetBuilder, logger *slog.Logger) *GofeedEngine {
	if logger == nil {
		logger = slog.Default()
	}

	return &GofeedEngine{
		builder:     builder,
		logger:      logger,
		userAgent:   "sync-core/1.0",
		concurrency: defaultRefreshConcurrency,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
}

// SetHTTPClient allows injecting a custom HTTP client (useful for testing).
func (e *GofeedEngine) SetHTTPClient(client *http.Client) {
	e.httpClient = client
}

// Find discovers the feeds available at a URL. When the URL is itself a
// parseable feed it is the single candidate; otherwise the page's HTML
// is scanned for alternate links. Candidates carry a quality score,
// higher is better.
func (e *GofeedEngine) Find(ctx context.Context, rawURL string) ([]models.FeedCandidate, error) {
	body, err := e.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if feed, err := gofeed.NewParser().Parse(bytes.NewReader(body)); err == nil {
		return []models.FeedCandidate{{
			URL:   rawURL,
			Title: feed.Title,
			Score: scoreDirectFeed,
		}}, nil
	}

	candidates, err := e.scanHTMLForFeeds(rawURL, body)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFeedsFound, rawURL)
	}

	e.logger.Debug("Discovered feed candidates", "url", rawURL, "count", len(candidates))
	return candidates, nil
}

// Download fetches and parses a single feed URL.
func (e *GofeedEngine) Download(ctx context.Context, rawURL string) (*models.ParsedFeed, error) {
	body, err := e.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", rawURL, err)
	}

	parsed := &models.ParsedFeed{
		URL:         rawURL,
		Title:       feed.Title,
		HomePageURL: feed.Link,
		Items:       make([]models.ParsedItem, 0, len(feed.Items)),
	}
	for _, item := range feed.Items {
		parsed.Items = append(parsed.Items, normalizeItem(item))
	}

	return parsed, nil
}

// Refresh downloads every feed with bounded concurrency and returns the
// merged changeset. One feed's failure never fails the batch; failures
// come back as the diagnostics slice. The merge runs on the calling
// goroutine after the join, so no shared state is touched by workers.
func (e *GofeedEngine) Refresh(ctx context.Context, feeds []*models.Feed) (*models.ArticleChangeSet, []error) {
	merged := models.NewArticleChangeSet()
	if len(feeds) == 0 {
		return merged, nil
	}

	results := make([]*models.ArticleChangeSet, len(feeds))

	var mu sync.Mutex
	var failures []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, feed := range feeds {
		g.Go(func() error {
			parsed, err := e.Download(gctx, feed.URL)
			if err != nil {
				e.logger.Warn("Feed refresh failed",
					"feed_id", feed.ID,
					"url", feed.URL,
					"error", err)
				mu.Lock()
				failures = append(failures, fmt.Errorf("feed %s: %w", feed.URL, err))
				mu.Unlock()
				return nil // non-fatal
			}

			changes, err := e.builder.BuildChangeSet(gctx, feed, parsed.Items)
			if err != nil {
				e.logger.Warn("Changeset build failed",
					"feed_id", feed.ID,
					"url", feed.URL,
					"error", err)
				mu.Lock()
				failures = append(failures, fmt.Errorf("feed %s: %w", feed.URL, err))
				mu.Unlock()
				return nil // non-fatal
			}

			results[i] = changes
			return nil
		})
	}

	// Workers only return nil; Wait is the join barrier.
	_ = g.Wait()

	for _, changes := range results {
		merged.Merge(changes)
	}

	return merged, failures
}

func (e *GofeedEngine) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch of %s failed with status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", rawURL, err)
	}

	return body, nil
}

// scanHTMLForFeeds extracts alternate feed links from a page.
func (e *GofeedEngine) scanHTMLForFeeds(pageURL string, body []byte) ([]models.FeedCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML at %s: %w", pageURL, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %s: %w", pageURL, err)
	}

	seen := make(map[string]bool)
	var candidates []models.FeedCandidate

	doc.Find(`link[rel="alternate"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}

		score := scoreForLinkType(sel.AttrOr("type", ""))
		if score == 0 {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref).String()
		if seen[resolved] {
			return
		}
		seen[resolved] = true

		candidates = append(candidates, models.FeedCandidate{
			URL:   resolved,
			Title: sel.AttrOr("title", ""),
			Score: score,
		})
	})

	return candidates, nil
}

func scoreForLinkType(linkType string) int {
	switch {
	case strings.Contains(linkType, "atom"):
		return scoreAtomLink
	case strings.Contains(linkType, "rss"):
		return scoreRSSLink
	case strings.Contains(linkType, "json"):
		return scoreJSONLink
	default:
		return 0
	}
}

func normalizeItem(item *gofeed.Item) models.ParsedItem {
	normalized := models.ParsedItem{
		UniqueID:    item.GUID,
		Title:       item.Title,
		URL:         item.Link,
		Summary:     item.Description,
		ContentHTML: item.Content,
		PublishedAt: item.PublishedParsed,
		UpdatedAt:   item.UpdatedParsed,
	}
	if normalized.UniqueID == "" {
		normalized.UniqueID = item.Link
	}
	if item.Author != nil {
		normalized.Author = item.Author.Name
	}
	return normalized
}
