package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trendsense/internal/domain"
	"trendsense/internal/source"
)

// Source tags stored on records, one per provider.
const (
	SourceHackerNews = "hackernews"
	SourceNews       = "news"
	SourceDiscussion = "discussion"
)

const (
	defaultAlgoliaURL = "https://hn.algolia.com/api/v1/search"
	maxContentLength  = 1000
)

// HackerNewsSearcher queries the Algolia story-search API. No credential
// is required, so this searcher is always available.
type HackerNewsSearcher struct {
	endpoint string
	client   *http.Client
}

var _ source.Searcher = (*HackerNewsSearcher)(nil)

// NewHackerNewsSearcher wires an HTTP client; endpoint defaults to Algolia.
func NewHackerNewsSearcher(endpoint string, client *http.Client) *HackerNewsSearcher {
	if endpoint == "" {
		endpoint = defaultAlgoliaURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HackerNewsSearcher{endpoint: endpoint, client: client}
}

// Name identifies the strategy inside the registry.
func (h *HackerNewsSearcher) Name() string {
	return SourceHackerNews
}

type algoliaResponse struct {
	Hits []struct {
		ObjectID  string `json:"objectID"`
		Title     string `json:"title"`
		URL       string `json:"url"`
		StoryText string `json:"story_text"`
		CreatedAt string `json:"created_at"`
	} `json:"hits"`
}

// Search returns up to limit stories matching the keyword. A story without
// an outbound URL resolves to its canonical comments page; the URL is the
// dedup key and must never be empty.
func (h *HackerNewsSearcher) Search(ctx context.Context, keyword string, limit int) ([]domain.Item, error) {
	query := url.Values{}
	query.Set("query", keyword)
	query.Set("tags", "story")
	query.Set("hitsPerPage", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request stories: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hacker news returned %s", resp.Status)
	}

	var payload algoliaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := make([]domain.Item, 0, len(payload.Hits))
	for _, hit := range payload.Hits {
		if len(items) >= limit {
			break
		}
		if hit.Title == "" {
			continue
		}

		link := hit.URL
		if link == "" {
			link = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}

		items = append(items, domain.Item{
			Keyword:     keyword,
			Source:      SourceHackerNews,
			Title:       hit.Title,
			Content:     truncate(fragmentText(hit.StoryText), maxContentLength),
			URL:         link,
			PublishedAt: parseProviderTime(hit.CreatedAt),
		})
	}

	return items, nil
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max]
}

func parseProviderTime(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
