package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"trendsense/internal/domain"
	"trendsense/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS sentiments (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    keyword         TEXT NOT NULL,
    source          TEXT NOT NULL,
    title           TEXT,
    content         TEXT,
    url             TEXT UNIQUE,
    sentiment_score REAL,
    summary         TEXT,
    created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sentiments_keyword ON sentiments(keyword);
CREATE INDEX IF NOT EXISTS idx_sentiments_created ON sentiments(created_at DESC);
`

// SQLiteRepository persists sentiment records in a single local SQLite file.
type SQLiteRepository struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ ports.SentimentRepository = (*SQLiteRepository)(nil)

// Open connects to (or creates) the store file and applies pragmas.
func Open(path string, logger *slog.Logger) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	return &SQLiteRepository{db: db, path: path, logger: logger}, nil
}

// InitSchema idempotently ensures the sentiments table and its unique URL
// index exist. Safe to call on every process start.
func (r *SQLiteRepository) InitSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Exists reports whether a record with the given URL is already stored.
// Fails closed: any read error answers false so the pipeline treats unknown
// as not-yet-seen; worst case is a redundant scoring call resolved by the
// duplicate outcome on insert.
func (r *SQLiteRepository) Exists(ctx context.Context, url string) bool {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM sentiments WHERE url = ? LIMIT 1`, url).Scan(&one)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		r.warn("exists check failed", "url", url, "error", err)
		return false
	}
	return true
}

// Insert stores one record. A URL-uniqueness violation is a normal
// duplicate outcome, not an error; every other write failure surfaces.
func (r *SQLiteRepository) Insert(ctx context.Context, record domain.SentimentRecord) (domain.InsertOutcome, error) {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sentiments (keyword, source, title, content, url, sentiment_score, summary, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Keyword,
		record.Source,
		record.Title,
		record.Content,
		record.URL,
		record.Score,
		record.Summary,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.OutcomeDuplicate, nil
		}
		return 0, fmt.Errorf("insert sentiment: %w", err)
	}
	return domain.OutcomeInserted, nil
}

// Query returns records matching the filter, newest first. All set filter
// fields are conjunctive.
func (r *SQLiteRepository) Query(ctx context.Context, filter domain.RecordFilter) ([]domain.SentimentRecord, error) {
	builder := sq.Select("id", "keyword", "source", "title", "content", "url", "sentiment_score", "summary", "created_at").
		From("sentiments").
		OrderBy("created_at DESC")

	if filter.Keyword != "" {
		builder = builder.Where(sq.Eq{"keyword": filter.Keyword})
	}
	if filter.Source != "" {
		builder = builder.Where(sq.Eq{"source": filter.Source})
	}
	if !filter.Since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"created_at": filter.Since.UTC().Format(time.RFC3339)})
	}
	if !filter.Until.IsZero() {
		builder = builder.Where(sq.LtOrEq{"created_at": filter.Until.UTC().Format(time.RFC3339)})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sentiments: %w", err)
	}
	defer rows.Close()

	var records []domain.SentimentRecord
	for rows.Next() {
		var rec domain.SentimentRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Keyword, &rec.Source, &rec.Title, &rec.Content,
			&rec.URL, &rec.Score, &rec.Summary, &createdAt); err != nil {
			return nil, fmt.Errorf("scan sentiment: %w", err)
		}
		rec.CreatedAt = parseStoredTime(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return records, nil
}

// Keywords returns all distinct keywords, sorted.
func (r *SQLiteRepository) Keywords(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("DISTINCT keyword").
		From("sentiments").
		OrderBy("keyword").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	var keywords []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		keywords = append(keywords, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return keywords, nil
}

// Stats returns record count and average score, optionally for one keyword.
func (r *SQLiteRepository) Stats(ctx context.Context, keyword string) (domain.Stats, error) {
	builder := sq.Select("COUNT(*)", "COALESCE(AVG(sentiment_score), 0)").From("sentiments")
	if keyword != "" {
		builder = builder.Where(sq.Eq{"keyword": keyword})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return domain.Stats{}, fmt.Errorf("build query: %w", err)
	}

	var stats domain.Stats
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&stats.Count, &stats.AverageScore); err != nil {
		return domain.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}

// ExtendedStats adds the top-3 and bottom-3 keywords by average score.
func (r *SQLiteRepository) ExtendedStats(ctx context.Context) (domain.ExtendedStats, error) {
	overall, err := r.Stats(ctx, "")
	if err != nil {
		return domain.ExtendedStats{}, err
	}

	stats := domain.ExtendedStats{
		TotalArticles:    overall.Count,
		AverageSentiment: overall.AverageScore,
	}

	stats.TopKeywords, err = r.keywordAverages(ctx, "avg_sentiment DESC")
	if err != nil {
		return domain.ExtendedStats{}, err
	}
	stats.BottomKeywords, err = r.keywordAverages(ctx, "avg_sentiment ASC")
	if err != nil {
		return domain.ExtendedStats{}, err
	}

	return stats, nil
}

func (r *SQLiteRepository) keywordAverages(ctx context.Context, order string) ([]domain.KeywordAverage, error) {
	query, args, err := sq.Select("keyword", "AVG(sentiment_score) AS avg_sentiment").
		From("sentiments").
		GroupBy("keyword").
		OrderBy(order).
		Limit(3).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keyword averages: %w", err)
	}
	defer rows.Close()

	var averages []domain.KeywordAverage
	for rows.Next() {
		var avg domain.KeywordAverage
		if err := rows.Scan(&avg.Keyword, &avg.AverageScore); err != nil {
			return nil, fmt.Errorf("scan keyword average: %w", err)
		}
		averages = append(averages, avg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return averages, nil
}

// Close closes the underlying database connection.
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *SQLiteRepository) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

func parseStoredTime(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
