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

const defaultNewsAPIURL = "https://newsapi.org/v2/everything"

// NewsAPISearcher queries the NewsAPI everything endpoint. It requires an
// API key; construct it only when the credential is configured.
type NewsAPISearcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

var _ source.Searcher = (*NewsAPISearcher)(nil)

// NewNewsAPISearcher wires the endpoint, credential, and HTTP client.
func NewNewsAPISearcher(endpoint, apiKey string, client *http.Client) *NewsAPISearcher {
	if endpoint == "" {
		endpoint = defaultNewsAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &NewsAPISearcher{endpoint: endpoint, apiKey: apiKey, client: client}
}

// Name identifies the strategy inside the registry.
func (n *NewsAPISearcher) Name() string {
	return SourceNews
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Search returns up to limit English-language articles for the keyword.
// Articles without a title or URL are dropped; URL is the dedup key.
func (n *NewsAPISearcher) Search(ctx context.Context, keyword string, limit int) ([]domain.Item, error) {
	if n.apiKey == "" {
		return nil, nil
	}

	query := url.Values{}
	query.Set("q", keyword)
	query.Set("language", "en")
	query.Set("sortBy", "publishedAt")
	query.Set("pageSize", strconv.Itoa(limit))
	query.Set("apiKey", n.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request articles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news api returned %s", resp.Status)
	}

	var payload newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("news api status %q", payload.Status)
	}

	items := make([]domain.Item, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		if len(items) >= limit {
			break
		}
		if article.Title == "" || article.URL == "" {
			continue
		}

		content := article.Content
		if content == "" {
			content = article.Description
		}

		items = append(items, domain.Item{
			Keyword:     keyword,
			Source:      SourceNews,
			Title:       article.Title,
			Content:     truncate(content, maxContentLength),
			URL:         article.URL,
			PublishedAt: parseProviderTime(article.PublishedAt),
		})
	}

	return items, nil
}
