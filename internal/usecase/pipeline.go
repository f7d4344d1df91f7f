package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"trendsense/internal/domain"
	"trendsense/internal/ports"
)

const demoBackdateDays = 14

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ItemSource
	Repository ports.SentimentRepository
	Scorer     ports.Scorer
	Notifier   ports.Notifier
	Logger     *slog.Logger

	// Pacing is the mandatory delay observed after each real scoring
	// call to stay under the provider's requests-per-minute ceiling.
	Pacing time.Duration
	// DemoMode backdates timestamps for chart spread; it is the explicit
	// toggle for demo data distribution, never switched implicitly.
	DemoMode bool
	// Sleep is injectable for tests; nil uses time.Sleep.
	Sleep func(time.Duration)
	// Now is injectable for tests; nil uses time.Now.
	Now func() time.Time
}

// Pipeline drives fetch → dedup → score → persist for each keyword.
type Pipeline struct {
	source     ports.ItemSource
	repository ports.SentimentRepository
	scorer     ports.Scorer
	notifier   ports.Notifier
	logger     *slog.Logger
	pacing     time.Duration
	demoMode   bool
	sleep      func(time.Duration)
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	sleep := deps.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		scorer:     deps.Scorer,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		pacing:     deps.Pacing,
		demoMode:   deps.DemoMode,
		sleep:      sleep,
		now:        now,
	}
}

// Run processes every keyword sequentially and returns aggregate counters.
// The run is safe to repeat at any time: items already stored (by URL) are
// skipped before any scoring call, and a duplicate insert is a normal
// counted outcome. Individual item failures never abort the run.
func (p *Pipeline) Run(ctx context.Context, keywords []string) (domain.RunStats, error) {
	if p.source == nil || p.repository == nil {
		return domain.RunStats{}, fmt.Errorf("pipeline missing source or repository")
	}

	var stats domain.RunStats
	for _, keyword := range keywords {
		keywordStats := p.processKeyword(ctx, keyword)
		stats.Add(keywordStats)
	}

	p.info("run complete",
		"loaded", stats.Loaded,
		"duplicates", stats.Duplicates,
		"errors", stats.Errors)

	if p.notifier != nil {
		summary := fmt.Sprintf("ETL run: %d loaded, %d duplicates, %d errors",
			stats.Loaded, stats.Duplicates, stats.Errors)
		if err := p.notifier.PublishSummary(ctx, summary); err != nil {
			p.warn("publish summary failed", "error", err)
		}
	}

	return stats, nil
}

func (p *Pipeline) processKeyword(ctx context.Context, keyword string) domain.RunStats {
	var stats domain.RunStats

	items, err := p.source.FetchKeyword(ctx, keyword)
	if err != nil {
		p.warn("fetch keyword failed", "keyword", keyword, "error", err)
		return stats
	}

	p.debug("fetched items", "keyword", keyword, "count", len(items))

	for _, item := range items {
		// Cost-control invariant: an item already in the store is never
		// re-sent to the external scorer.
		if p.repository.Exists(ctx, item.URL) {
			stats.Duplicates++
			continue
		}

		score := p.scoreItem(ctx, item)

		record, err := domain.NewRecord(domain.ScoredItem{
			Item:    item,
			Score:   score,
			Summary: item.Title,
		}, p.recordTime())
		if err != nil {
			p.warn("invalid item dropped", "keyword", keyword, "url", item.URL, "error", err)
			stats.Errors++
			continue
		}

		outcome, err := p.repository.Insert(ctx, record)
		switch {
		case err != nil:
			p.warn("insert failed", "url", record.URL, "error", err)
			stats.Errors++
		case outcome == domain.OutcomeDuplicate:
			stats.Duplicates++
		default:
			stats.Loaded++
		}
	}

	return stats
}

// scoreItem prefers the title, falls back to truncated content, and
// deliberately degrades to neutral when the scorer fails: one unscorable
// item must never abort the run.
func (p *Pipeline) scoreItem(ctx context.Context, item domain.Item) float64 {
	text := item.Title
	if text == "" {
		text = item.Content
		if len(text) > 200 {
			text = text[:200]
		}
	}
	if text == "" {
		return 0
	}

	score, err := p.scorer.Score(ctx, text)
	if err != nil {
		p.warn("scoring degraded to neutral", "url", item.URL, "error", err)
		score = 0
	}

	if p.pacing > 0 {
		p.sleep(p.pacing)
	}
	return score
}

// recordTime returns zero (store assigns now) in normal operation, or a
// backdated timestamp in demo mode so charts have data spread.
func (p *Pipeline) recordTime() time.Time {
	if !p.demoMode {
		return time.Time{}
	}
	back := time.Duration(rand.Intn(demoBackdateDays*24)) * time.Hour
	return p.now().UTC().Add(-back)
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
