// ABOUTME: This file defines article models and the parsed-item payloads produced by content sources
// ABOUTME: Articles are keyed by a stable (feedID, uniqueID-within-feed) pair

package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Article represents one article held by the local store.
type Article struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	FeedID      uuid.UUID  `json:"feed_id" db:"feed_id"`
	UniqueID    string     `json:"unique_id" db:"unique_id"`
	Title       string     `json:"title" db:"title"`
	URL         string     `json:"url" db:"url"`
	ExternalURL string     `json:"external_url,omitempty" db:"external_url"`
	Author      string     `json:"author,omitempty" db:"author"`
	Summary     string     `json:"summary,omitempty" db:"summary"`
	ContentHTML string     `json:"content_html,omitempty" db:"content_html"`
	ContentHash string     `json:"content_hash" db:"content_hash"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
	Read        bool       `json:"read" db:"read"`
	Starred     bool       `json:"starred" db:"starred"`
	FetchedAt   time.Time  `json:"fetched_at" db:"fetched_at"`
}

// ArticleKey identifies an article across refresh cycles. UniqueID is
// stable within its feed, never across feeds.
type ArticleKey struct {
	FeedID   uuid.UUID
	UniqueID string
}

// Key returns the stable identity of the article.
func (a *Article) Key() ArticleKey {
	return ArticleKey{FeedID: a.FeedID, UniqueID: a.UniqueID}
}

// ParsedItem is the normalized output of a content source (provider or
// generic engine) before it is applied to the local store.
type ParsedItem struct {
	UniqueID    string     `json:"unique_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	ExternalURL string     `json:"external_url,omitempty"`
	Author      string     `json:"author,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	ContentHTML string     `json:"content_html,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ContentHash produces a stable digest of the item fields that matter
// for change detection. Re-applying an identical item is a no-op.
func (p *ParsedItem) ContentHash() string {
	h := sha256.New()
	h.Write([]byte(p.UniqueID))
	h.Write([]byte{0})
	h.Write([]byte(p.Title))
	h.Write([]byte{0})
	h.Write([]byte(p.URL))
	h.Write([]byte{0})
	h.Write([]byte(p.Author))
	h.Write([]byte{0})
	h.Write([]byte(p.Summary))
	h.Write([]byte{0})
	h.Write([]byte(p.ContentHTML))
	return hex.EncodeToString(h.Sum(nil))
}

// ParsedFeed is the one-shot download result for a single feed URL.
type ParsedFeed struct {
	URL         string       `json:"url"`
	Title       string       `json:"title"`
	HomePageURL string       `json:"home_page_url,omitempty"`
	Items       []ParsedItem `json:"items"`
}

// FeedCandidate is one feed discovered for a requested page URL.
// Score is a source-defined quality ranking; higher is better.
type FeedCandidate struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// NewArticleFromParsedItem builds a local article for an item seen for
// the first time.
func NewArticleFromParsedItem(feedID uuid.UUID, item ParsedItem) *Article {
	uniqueID := item.UniqueID
	if uniqueID == "" {
		uniqueID = item.URL
	}

	return &Article{
		ID:          uuid.New(),
		FeedID:      feedID,
		UniqueID:    uniqueID,
		Title:       item.Title,
		URL:         item.URL,
		ExternalURL: item.ExternalURL,
		Author:      item.Author,
		Summary:     item.Summary,
		ContentHTML: item.ContentHTML,
		ContentHash: item.ContentHash(),
		PublishedAt: item.PublishedAt,
		FetchedAt:   time.Now(),
	}
}

// ApplyParsedItem overwrites the article content from a newer parse of
// the same item. Read/starred flags are local state and survive.
func (a *Article) ApplyParsedItem(item ParsedItem) {
	a.Title = item.Title
	a.URL = item.URL
	a.ExternalURL = item.ExternalURL
	a.Author = item.Author
	a.Summary = item.Summary
	a.ContentHTML = item.ContentHTML
	a.ContentHash = item.ContentHash()
	a.PublishedAt = item.PublishedAt
	a.FetchedAt = time.Now()
}
