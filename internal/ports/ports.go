package ports

import (
	"context"
	"time"

	"trendsense/internal/domain"
)

// ItemSource pulls raw items from every configured provider for one keyword.
type ItemSource interface {
	FetchKeyword(ctx context.Context, keyword string) ([]domain.Item, error)
}

// SentimentRepository persists scored records and answers the dedup check.
type SentimentRepository interface {
	InitSchema(ctx context.Context) error
	Exists(ctx context.Context, url string) bool
	Insert(ctx context.Context, record domain.SentimentRecord) (domain.InsertOutcome, error)
	Query(ctx context.Context, filter domain.RecordFilter) ([]domain.SentimentRecord, error)
	Keywords(ctx context.Context) ([]string, error)
	Stats(ctx context.Context, keyword string) (domain.Stats, error)
	ExtendedStats(ctx context.Context) (domain.ExtendedStats, error)
	Close() error
}

// Scorer maps free text to a bounded sentiment value. Implementations
// return the neutral value alongside the error when scoring fails, so the
// caller decides whether to degrade or abort.
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// Notifier publishes a run summary to an outbound channel.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when recurring pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
