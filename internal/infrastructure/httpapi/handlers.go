package httpapi

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"trendsense/internal/domain"
)

const (
	defaultQueryLimit = 100
	defaultDateWindow = 30 * 24 * time.Hour
	dateLayout        = "2006-01-02"
)

type recordJSON struct {
	ID        int64   `json:"id"`
	Keyword   string  `json:"keyword"`
	Source    string  `json:"source"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	URL       string  `json:"url"`
	Score     float64 `json:"sentiment_score"`
	Summary   string  `json:"summary"`
	CreatedAt string  `json:"created_at"`
}

func toRecordJSON(rec domain.SentimentRecord) recordJSON {
	return recordJSON{
		ID:        rec.ID,
		Keyword:   rec.Keyword,
		Source:    rec.Source,
		Title:     rec.Title,
		Content:   rec.Content,
		URL:       rec.URL,
		Score:     rec.Score,
		Summary:   rec.Summary,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSentiments(w http.ResponseWriter, r *http.Request) {
	filter := domain.RecordFilter{
		Keyword: r.URL.Query().Get("keyword"),
		Source:  r.URL.Query().Get("source"),
		Limit:   defaultQueryLimit,
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	startRaw := r.URL.Query().Get("start_date")
	endRaw := r.URL.Query().Get("end_date")
	if startRaw == "" && endRaw == "" {
		// Default to the last 30 days when neither bound is given.
		now := time.Now().UTC()
		filter.Since = now.Add(-defaultDateWindow)
		filter.Until = now
	} else {
		if t, err := time.Parse(dateLayout, startRaw); err == nil {
			filter.Since = t
		}
		if t, err := time.Parse(dateLayout, endRaw); err == nil {
			filter.Until = t.Add(24*time.Hour - time.Second)
		}
	}

	records, err := s.repository.Query(r.Context(), filter)
	if err != nil {
		s.logError("query sentiments", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	data := make([]recordJSON, 0, len(records))
	for _, rec := range records {
		data = append(data, toRecordJSON(rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(data),
		"data":    data,
	})
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := s.repository.Keywords(r.Context())
	if err != nil {
		s.logError("query keywords", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if keywords == nil {
		keywords = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"keywords": keywords,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repository.Stats(r.Context(), r.URL.Query().Get("keyword"))
	if err != nil {
		s.logError("query stats", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats": map[string]any{
			"total_count":       stats.Count,
			"average_sentiment": round3(stats.AverageScore),
		},
	})
}

func (s *Server) handleExtendedStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repository.ExtendedStats(r.Context())
	if err != nil {
		s.logError("query extended stats", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	top := stats.TopKeywords
	if top == nil {
		top = []domain.KeywordAverage{}
	}
	bottom := stats.BottomKeywords
	if bottom == nil {
		bottom = []domain.KeywordAverage{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats": map[string]any{
			"total_articles":    stats.TotalArticles,
			"average_sentiment": round3(stats.AverageSentiment),
			"top_keywords":      top,
			"bottom_keywords":   bottom,
		},
	})
}

type trendRow struct {
	Date             string  `json:"date"`
	Keyword          string  `json:"keyword"`
	AverageSentiment float64 `json:"average_sentiment"`
	Count            int     `json:"count"`
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	limit := 500
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.repository.Query(r.Context(), domain.RecordFilter{Limit: limit})
	if err != nil {
		s.logError("query trends", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"trends":  groupTrends(records),
	})
}

// groupTrends buckets records by (keyword, day) and computes per-group
// mean sentiment and article count, sorted by date then keyword.
func groupTrends(records []domain.SentimentRecord) []trendRow {
	type bucket struct {
		sum   float64
		count int
	}
	type key struct {
		date    string
		keyword string
	}

	buckets := map[key]*bucket{}
	for _, rec := range records {
		k := key{date: rec.CreatedAt.UTC().Format(dateLayout), keyword: rec.Keyword}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{}
			buckets[k] = b
		}
		b.sum += rec.Score
		b.count++
	}

	rows := make([]trendRow, 0, len(buckets))
	for k, b := range buckets {
		rows = append(rows, trendRow{
			Date:             k.date,
			Keyword:          k.keyword,
			AverageSentiment: round3(b.sum / float64(b.count)),
			Count:            b.count,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Keyword < rows[j].Keyword
	})

	return rows
}

func (s *Server) handleTriggerETL(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		writeError(w, http.StatusInternalServerError, "pipeline not configured")
		return
	}

	keywords := s.keywords
	if raw := r.URL.Query().Get("keywords"); raw != "" {
		keywords = splitKeywords(raw)
	}

	stats, err := s.pipeline.Run(r.Context(), keywords)
	if err != nil {
		s.logError("trigger etl", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Item-level failures are visible in counters/logs only; the trigger
	// itself succeeds whenever the run produced stats.
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "ETL pipeline completed",
		"count":   stats.Loaded,
		"stats": map[string]int{
			"loaded":     stats.Loaded,
			"duplicates": stats.Duplicates,
			"errors":     stats.Errors,
		},
	})
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if kw := strings.TrimSpace(part); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

func (s *Server) logError(msg string, err error) {
	if s.logger != nil {
		s.logger.Error(msg, "error", err)
	}
}
