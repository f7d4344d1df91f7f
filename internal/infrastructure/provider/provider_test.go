package provider

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"trendsense/internal/domain"
	"trendsense/internal/source"
)

func TestHackerNewsSearch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != "Python" {
			t.Errorf("unexpected query: %s", got)
		}
		_, _ = w.Write([]byte(`{
			"hits": [
				{"objectID": "100", "title": "Linked story", "url": "https://blog.example.com/post",
				 "story_text": "", "created_at": "2026-08-01T10:00:00Z"},
				{"objectID": "200", "title": "Ask HN: thoughts?", "url": "",
				 "story_text": "<p>Some <i>markup</i> here</p>", "created_at": "2026-08-02T10:00:00Z"},
				{"objectID": "300", "title": "", "url": "https://dropped.example.com"}
			]
		}`))
	}))
	defer server.Close()

	searcher := NewHackerNewsSearcher(server.URL, server.Client())

	items, err := searcher.Search(context.Background(), "Python", 10)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].URL != "https://blog.example.com/post" {
		t.Fatalf("unexpected url: %s", items[0].URL)
	}
	if items[1].URL != "https://news.ycombinator.com/item?id=200" {
		t.Fatalf("expected synthesized fallback url, got %s", items[1].URL)
	}
	if items[1].Content != "Some markup here" {
		t.Fatalf("expected stripped story text, got %q", items[1].Content)
	}
	for _, item := range items {
		if item.Source != SourceHackerNews || item.Keyword != "Python" {
			t.Fatalf("unexpected tagging: %+v", item)
		}
	}
}

func TestHackerNewsSearchRespectsLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"hits": [
			{"objectID": "1", "title": "a"},
			{"objectID": "2", "title": "b"},
			{"objectID": "3", "title": "c"}
		]}`))
	}))
	defer server.Close()

	searcher := NewHackerNewsSearcher(server.URL, server.Client())
	items, err := searcher.Search(context.Background(), "Go", 2)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
}

func TestHackerNewsSearchErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	searcher := NewHackerNewsSearcher(server.URL, server.Client())
	if _, err := searcher.Search(context.Background(), "Go", 3); err == nil {
		t.Fatal("expected error on 503 response")
	}
}

func TestNewsAPISearch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("apiKey"); got != "secret" {
			t.Errorf("unexpected api key: %s", got)
		}
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"articles": [
				{"title": "Big release", "content": "Details inside", "url": "https://news.example.com/1",
				 "publishedAt": "2026-08-03T08:00:00Z"},
				{"title": "No content", "description": "Only description", "url": "https://news.example.com/2"},
				{"title": "", "url": "https://news.example.com/3"}
			]
		}`))
	}))
	defer server.Close()

	searcher := NewNewsAPISearcher(server.URL, "secret", server.Client())
	items, err := searcher.Search(context.Background(), "TypeScript", 10)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Content != "Details inside" {
		t.Fatalf("unexpected content: %q", items[0].Content)
	}
	if items[1].Content != "Only description" {
		t.Fatalf("expected description fallback, got %q", items[1].Content)
	}
	if items[0].Source != SourceNews {
		t.Fatalf("unexpected source tag: %s", items[0].Source)
	}
}

func TestNewsAPISearchWithoutKeyIsNoop(t *testing.T) {
	t.Parallel()

	searcher := NewNewsAPISearcher("http://unused", "", nil)
	items, err := searcher.Search(context.Background(), "Go", 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if items != nil {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestNewsAPISearchBadStatusField(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "error", "articles": []}`))
	}))
	defer server.Close()

	searcher := NewNewsAPISearcher(server.URL, "secret", server.Client())
	if _, err := searcher.Search(context.Background(), "Go", 3); err == nil {
		t.Fatal("expected error on provider error status")
	}
}

func TestRedditSearchAcquiresTokenAndSynthesizesURL(t *testing.T) {
	t.Parallel()

	var tokenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			t.Errorf("unexpected basic auth: %s:%s", user, pass)
		}
		_, _ = w.Write([]byte(`{"access_token": "tok", "expires_in": 3600}`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected authorization: %s", got)
		}
		_, _ = w.Write([]byte(`{"data": {"children": [
			{"data": {"title": "Go question", "selftext": "plain body", "permalink": "/r/golang/1", "created_utc": 1756500000}},
			{"data": {"title": "", "permalink": "/r/golang/2"}}
		]}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	searcher := NewRedditSearcher(server.URL+"/token", server.URL+"/search",
		"id", "secret", "TrendSense/1.0", server.Client())

	items, err := searcher.Search(context.Background(), "Go", 10)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].URL != "https://reddit.com/r/golang/1" {
		t.Fatalf("unexpected url: %s", items[0].URL)
	}
	if items[0].Source != SourceDiscussion {
		t.Fatalf("unexpected source tag: %s", items[0].Source)
	}

	// Token is cached across searches.
	if _, err := searcher.Search(context.Background(), "Go", 10); err != nil {
		t.Fatalf("second Search error: %v", err)
	}
	if tokenCalls != 1 {
		t.Fatalf("expected 1 token call, got %d", tokenCalls)
	}
}

type stubSearcher struct {
	name  string
	items []domain.Item
	err   error
}

func (s *stubSearcher) Name() string { return s.name }

func (s *stubSearcher) Search(context.Context, string, int) ([]domain.Item, error) {
	return s.items, s.err
}

func TestMultiSourceConcatenatesAndDegrades(t *testing.T) {
	t.Parallel()

	registry := source.NewRegistry()
	registry.Register(&stubSearcher{
		name:  SourceHackerNews,
		items: []domain.Item{{URL: "https://x/1", Source: SourceHackerNews}},
	})
	registry.Register(&stubSearcher{name: SourceNews, err: errors.New("boom")})
	registry.Register(&stubSearcher{
		name:  SourceDiscussion,
		items: []domain.Item{{URL: "https://x/2", Source: SourceDiscussion}},
	})

	multi := NewMultiSource(registry, Limits{News: 5, Discussion: 5}, slog.Default())

	items, err := multi.FetchKeyword(context.Background(), "Go")
	if err != nil {
		t.Fatalf("FetchKeyword error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items after degradation, got %d", len(items))
	}
	if items[0].URL != "https://x/1" || items[1].URL != "https://x/2" {
		t.Fatalf("unexpected ordering: %+v", items)
	}
}

func TestFragmentText(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"plain text":             "plain text",
		"<p>hello <b>bold</b></p>": "hello bold",
		"  spaced  ":             "spaced",
		"":                       "",
	}
	for input, want := range cases {
		if got := fragmentText(input); got != want {
			t.Fatalf("fragmentText(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := truncate("0123456789abc", 10); got != "0123456789" {
		t.Fatalf("unexpected: %q", got)
	}
}
