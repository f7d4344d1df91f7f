package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendsense/internal/domain"
)

type fakeSource struct {
	items map[string][]domain.Item
	err   error
}

func (f *fakeSource) FetchKeyword(_ context.Context, keyword string) ([]domain.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[keyword], nil
}

type fakeRepository struct {
	records   map[string]domain.SentimentRecord
	insertErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{records: map[string]domain.SentimentRecord{}}
}

func (f *fakeRepository) InitSchema(context.Context) error { return nil }

func (f *fakeRepository) Exists(_ context.Context, url string) bool {
	_, ok := f.records[url]
	return ok
}

func (f *fakeRepository) Insert(_ context.Context, record domain.SentimentRecord) (domain.InsertOutcome, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	if _, ok := f.records[record.URL]; ok {
		return domain.OutcomeDuplicate, nil
	}
	f.records[record.URL] = record
	return domain.OutcomeInserted, nil
}

func (f *fakeRepository) Query(_ context.Context, filter domain.RecordFilter) ([]domain.SentimentRecord, error) {
	var out []domain.SentimentRecord
	for _, rec := range f.records {
		if filter.Keyword != "" && rec.Keyword != filter.Keyword {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeRepository) Keywords(context.Context) ([]string, error) { return nil, nil }

func (f *fakeRepository) Stats(context.Context, string) (domain.Stats, error) {
	return domain.Stats{}, nil
}

func (f *fakeRepository) ExtendedStats(context.Context) (domain.ExtendedStats, error) {
	return domain.ExtendedStats{}, nil
}

func (f *fakeRepository) Close() error { return nil }

type fakeScorer struct {
	score float64
	err   error
	calls int
}

func (f *fakeScorer) Score(context.Context, string) (float64, error) {
	f.calls++
	return f.score, f.err
}

func newTestPipeline(src *fakeSource, repo *fakeRepository, scorer *fakeScorer) *Pipeline {
	return NewPipeline(PipelineDeps{
		Source:     src,
		Repository: repo,
		Scorer:     scorer,
		Sleep:      func(time.Duration) {},
	})
}

func TestRunLoadsNewItem(t *testing.T) {
	t.Parallel()

	src := &fakeSource{items: map[string][]domain.Item{
		"Python": {{Keyword: "Python", Source: "news", Title: "Great news for Python", URL: "https://x/1"}},
	}}
	repo := newFakeRepository()
	scorer := &fakeScorer{score: 0.42}

	stats, err := newTestPipeline(src, repo, scorer).Run(context.Background(), []string{"Python"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStats{Loaded: 1}, stats)

	records, err := repo.Query(context.Background(), domain.RecordFilter{Keyword: "Python"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0.42, records[0].Score)
	assert.Equal(t, "https://x/1", records[0].URL)
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	t.Parallel()

	src := &fakeSource{items: map[string][]domain.Item{
		"Go": {{Keyword: "Go", Source: "news", Title: "Go release", URL: "https://x/go"}},
	}}
	repo := newFakeRepository()
	scorer := &fakeScorer{score: 0.5}
	pipeline := newTestPipeline(src, repo, scorer)

	first, err := pipeline.Run(context.Background(), []string{"Go"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStats{Loaded: 1}, first)

	second, err := pipeline.Run(context.Background(), []string{"Go"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStats{Duplicates: 1}, second)
	assert.Len(t, repo.records, 1)
}

func TestRunNeverScoresAlreadyStoredItems(t *testing.T) {
	t.Parallel()

	src := &fakeSource{items: map[string][]domain.Item{
		"AI": {
			{Keyword: "AI", Source: "news", Title: "seen", URL: "https://x/seen"},
			{Keyword: "AI", Source: "news", Title: "new", URL: "https://x/new"},
		},
	}}
	repo := newFakeRepository()
	repo.records["https://x/seen"] = domain.SentimentRecord{URL: "https://x/seen"}
	scorer := &fakeScorer{score: 0.1}

	stats, err := newTestPipeline(src, repo, scorer).Run(context.Background(), []string{"AI"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStats{Loaded: 1, Duplicates: 1}, stats)
	assert.Equal(t, 1, scorer.calls, "stored item must not reach the scorer")
}

func TestRunCountsIntraRunDuplicates(t *testing.T) {
	t.Parallel()

	// Two sources returning the same URL within one run: the first insert
	// wins, the second is filtered by the existence check.
	src := &fakeSource{items: map[string][]domain.Item{
		"AI": {
			{Keyword: "AI", Source: "news", Title: "same", URL: "https://x/dup"},
			{Keyword: "AI", Source: "discussion", Title: "same", URL: "https://x/dup"},
		},
	}}
	repo := newFakeRepository()
	scorer := &fakeScorer{score: 0.2}

	stats, err := newTestPipeline(src, repo, scorer).Run(context.Background(), []string{"AI"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStats{Loaded: 1, Duplicates: 1}, stats)
	assert.Equal(t, 1, scorer.calls)
}

func TestRunDegradesScorerFailureToNeutral(t *testing.T) {
	t.Parallel()

	src := &fakeSource{items: map[string][]domain.Item{
		"Go": {{Keyword: "Go", Source: "news", Title: "headline", URL: "https://x/1"}},
	}}
	repo := newFakeRepository()
	scorer := &fakeScorer{score: 0, err: errors.New("quota exhausted")}

	stats, err := newTestPipeline(src, repo, scorer).Run(context.Background(), []string{"Go"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStats{Loaded: 1}, stats)
	assert.Equal(t, 0.0, repo.records["https://x/1"].Score)
}

func TestRunCountsStoreErrors(t *testing.T) {
	t.Parallel()

	src := &fakeSource{items: map[string][]domain.Item{
		"Go": {{Keyword: "Go", Source: "news", Title: "headline", URL: "https://x/1"}},
	}}
	repo := newFakeRepository()
	repo.insertErr = errors.New("disk full")
	scorer := &fakeScorer{score: 0.5}

	stats, err := newTestPipeline(src, repo, scorer).Run(context.Background(), []string{"Go"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStats{Errors: 1}, stats)
}

func TestRunDropsUnidentifiableItems(t *testing.T) {
	t.Parallel()

	src := &fakeSource{items: map[string][]domain.Item{
		"Go": {{Keyword: "Go", Source: "news", Title: "no url"}},
	}}
	repo := newFakeRepository()
	scorer := &fakeScorer{score: 0.5}

	stats, err := newTestPipeline(src, repo, scorer).Run(context.Background(), []string{"Go"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Empty(t, repo.records)
}

func TestRunSurvivesFetchFailure(t *testing.T) {
	t.Parallel()

	src := &fakeSource{err: errors.New("network down")}
	repo := newFakeRepository()
	scorer := &fakeScorer{}

	stats, err := newTestPipeline(src, repo, scorer).Run(context.Background(), []string{"Go", "AI"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStats{}, stats)
	assert.Equal(t, 0, scorer.calls)
}

func TestRunPacesScoringCalls(t *testing.T) {
	t.Parallel()

	src := &fakeSource{items: map[string][]domain.Item{
		"Go": {
			{Keyword: "Go", Source: "news", Title: "a", URL: "https://x/a"},
			{Keyword: "Go", Source: "news", Title: "b", URL: "https://x/b"},
		},
	}}
	repo := newFakeRepository()
	scorer := &fakeScorer{score: 0.1}

	var slept []time.Duration
	pipeline := NewPipeline(PipelineDeps{
		Source:     src,
		Repository: repo,
		Scorer:     scorer,
		Pacing:     10 * time.Second,
		Sleep:      func(d time.Duration) { slept = append(slept, d) },
	})

	_, err := pipeline.Run(context.Background(), []string{"Go"})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, slept)
}

func TestRunDemoModeBackdatesRecords(t *testing.T) {
	t.Parallel()

	src := &fakeSource{items: map[string][]domain.Item{
		"Go": {{Keyword: "Go", Source: "news", Title: "a", URL: "https://x/a"}},
	}}
	repo := newFakeRepository()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	pipeline := NewPipeline(PipelineDeps{
		Source:     src,
		Repository: repo,
		Scorer:     &fakeScorer{score: 0.3},
		DemoMode:   true,
		Sleep:      func(time.Duration) {},
		Now:        func() time.Time { return now },
	})

	_, err := pipeline.Run(context.Background(), []string{"Go"})
	require.NoError(t, err)

	rec := repo.records["https://x/a"]
	require.False(t, rec.CreatedAt.IsZero())
	assert.True(t, !rec.CreatedAt.After(now))
	assert.True(t, rec.CreatedAt.After(now.Add(-15*24*time.Hour)))
}
