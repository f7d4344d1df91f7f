package domain

import (
	"errors"
	"fmt"
	"time"
)

// Score bounds for every persisted sentiment value.
const (
	MinScore = -1.0
	MaxScore = 1.0
)

// Item is a raw fetched article or post, prior to scoring.
type Item struct {
	Keyword     string
	Source      string
	Title       string
	Content     string
	URL         string
	PublishedAt time.Time
}

// ScoredItem carries an Item together with its sentiment score and summary.
type ScoredItem struct {
	Item
	Score   float64
	Summary string
}

// SentimentRecord is the persisted shape of a scored item.
type SentimentRecord struct {
	ID        int64
	Keyword   string
	Source    string
	Title     string
	Content   string
	URL       string
	Score     float64
	Summary   string
	CreatedAt time.Time
}

// ErrInvalidRecord marks records that fail constructor-time validation.
var ErrInvalidRecord = errors.New("invalid sentiment record")

// NewRecord builds a SentimentRecord from a scored item, validating the
// fields the store relies on. The score is clamped into [MinScore, MaxScore]
// so no out-of-range value can reach persistence. CreatedAt may be backdated
// for demo data distribution; the zero time means "assign at insert".
func NewRecord(scored ScoredItem, createdAt time.Time) (SentimentRecord, error) {
	if scored.Keyword == "" {
		return SentimentRecord{}, fmt.Errorf("%w: empty keyword", ErrInvalidRecord)
	}
	if scored.Source == "" {
		return SentimentRecord{}, fmt.Errorf("%w: empty source", ErrInvalidRecord)
	}
	if scored.URL == "" {
		return SentimentRecord{}, fmt.Errorf("%w: empty url", ErrInvalidRecord)
	}

	summary := scored.Summary
	if summary == "" {
		summary = scored.Title
	}

	return SentimentRecord{
		Keyword:   scored.Keyword,
		Source:    scored.Source,
		Title:     scored.Title,
		Content:   scored.Content,
		URL:       scored.URL,
		Score:     ClampScore(scored.Score),
		Summary:   summary,
		CreatedAt: createdAt,
	}, nil
}

// ClampScore forces a producer value into the closed interval [-1, 1].
func ClampScore(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// InsertOutcome reports how the store resolved a single insert.
type InsertOutcome int

const (
	OutcomeInserted InsertOutcome = iota
	OutcomeDuplicate
)

// RunStats aggregates counters for one pipeline run. Duplicates counts both
// items filtered by the existence check and inserts resolved as duplicates.
type RunStats struct {
	Loaded     int
	Duplicates int
	Errors     int
}

// Add merges another stats value into the receiver.
func (s *RunStats) Add(other RunStats) {
	s.Loaded += other.Loaded
	s.Duplicates += other.Duplicates
	s.Errors += other.Errors
}

// RecordFilter narrows store queries; all set fields are ANDed together.
type RecordFilter struct {
	Keyword string
	Source  string
	Since   time.Time
	Until   time.Time
	Limit   int
}

// Stats summarizes stored records, optionally for a single keyword.
type Stats struct {
	Count        int
	AverageScore float64
}

// KeywordAverage pairs a keyword with its mean sentiment.
type KeywordAverage struct {
	Keyword      string  `json:"keyword"`
	AverageScore float64 `json:"avg_sentiment"`
}

// ExtendedStats adds the best and worst keywords by average sentiment.
type ExtendedStats struct {
	TotalArticles    int
	AverageSentiment float64
	TopKeywords      []KeywordAverage
	BottomKeywords   []KeywordAverage
}
