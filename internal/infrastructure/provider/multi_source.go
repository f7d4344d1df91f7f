package provider

import (
	"context"
	"log/slog"

	"trendsense/internal/domain"
	"trendsense/internal/ports"
	"trendsense/internal/source"
)

// Limits carries the per-source result-count caps from configuration.
type Limits struct {
	News       int
	Discussion int
}

func (l Limits) forSearcher(name string) int {
	switch name {
	case SourceNews:
		return l.News
	default:
		return l.Discussion
	}
}

// MultiSource implements ItemSource by running every registered searcher
// for a keyword and concatenating the results. A failing searcher degrades
// to zero items with a logged diagnostic; it never aborts the keyword.
type MultiSource struct {
	registry *source.Registry
	limits   Limits
	logger   *slog.Logger
}

var _ ports.ItemSource = (*MultiSource)(nil)

// NewMultiSource wires the searcher registry with configured caps.
func NewMultiSource(reg *source.Registry, limits Limits, log *slog.Logger) *MultiSource {
	return &MultiSource{
		registry: reg,
		limits:   limits,
		logger:   log,
	}
}

// FetchKeyword collects items from every searcher for one keyword.
func (m *MultiSource) FetchKeyword(ctx context.Context, keyword string) ([]domain.Item, error) {
	var aggregated []domain.Item
	for _, name := range m.registry.Names() {
		searcher, err := m.registry.Resolve(name)
		if err != nil {
			m.warn("searcher missing", "searcher", name, "error", err)
			continue
		}

		items, err := searcher.Search(ctx, keyword, m.limits.forSearcher(name))
		if err != nil {
			m.warn("search failed", "searcher", name, "keyword", keyword, "error", err)
			continue
		}

		m.debug("searcher produced items", "searcher", name, "keyword", keyword, "count", len(items))
		aggregated = append(aggregated, items...)
	}
	return aggregated, nil
}

func (m *MultiSource) debug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *MultiSource) warn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
