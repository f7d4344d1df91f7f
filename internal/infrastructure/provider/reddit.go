package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"trendsense/internal/domain"
	"trendsense/internal/source"
)

const (
	defaultRedditTokenURL  = "https://www.reddit.com/api/v1/access_token"
	defaultRedditSearchURL = "https://oauth.reddit.com/search"
)

// RedditSearcher queries the Reddit search API using an application-only
// OAuth token obtained with the configured client-credential pair. The
// token is cached until shortly before expiry.
type RedditSearcher struct {
	tokenURL  string
	searchURL string
	clientID  string
	secret    string
	userAgent string
	client    *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

var _ source.Searcher = (*RedditSearcher)(nil)

// NewRedditSearcher wires credentials and endpoints. Empty endpoints
// default to the public Reddit API.
func NewRedditSearcher(tokenURL, searchURL, clientID, secret, userAgent string, client *http.Client) *RedditSearcher {
	if tokenURL == "" {
		tokenURL = defaultRedditTokenURL
	}
	if searchURL == "" {
		searchURL = defaultRedditSearchURL
	}
	if userAgent == "" {
		userAgent = "TrendSense/1.0"
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RedditSearcher{
		tokenURL:  tokenURL,
		searchURL: searchURL,
		clientID:  clientID,
		secret:    secret,
		userAgent: userAgent,
		client:    client,
	}
}

// Name identifies the strategy inside the registry.
func (r *RedditSearcher) Name() string {
	return SourceDiscussion
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title      string  `json:"title"`
				Selftext   string  `json:"selftext"`
				Permalink  string  `json:"permalink"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Search returns up to limit posts matching the keyword. The post URL is
// synthesized from the permalink so the dedup key is always present.
func (r *RedditSearcher) Search(ctx context.Context, keyword string, limit int) ([]domain.Item, error) {
	token, err := r.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	query := url.Values{}
	query.Set("q", keyword)
	query.Set("sort", "hot")
	query.Set("t", "week")
	query.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.searchURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit returned %s", resp.Status)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := make([]domain.Item, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if len(items) >= limit {
			break
		}
		post := child.Data
		if post.Title == "" || post.Permalink == "" {
			continue
		}

		content := fragmentText(post.Selftext)
		if content == "" {
			content = post.Title
		}

		items = append(items, domain.Item{
			Keyword:     keyword,
			Source:      SourceDiscussion,
			Title:       post.Title,
			Content:     truncate(content, maxContentLength),
			URL:         "https://reddit.com" + post.Permalink,
			PublishedAt: time.Unix(int64(post.CreatedUTC), 0).UTC(),
		})
	}

	return items, nil
}

func (r *RedditSearcher) accessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && time.Now().Before(r.tokenExpiry) {
		return r.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(r.clientID, r.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty token")
	}

	r.token = payload.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - time.Minute)
	return r.token, nil
}
