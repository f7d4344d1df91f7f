package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"trendsense/internal/domain"
	"trendsense/internal/ports"
	"trendsense/internal/retry"
)

const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

var numberExpr = regexp.MustCompile(`-?\d+\.?\d*`)

// ErrRateLimited marks quota/rate-limit failures from the Gemini API.
var ErrRateLimited = errors.New("gemini rate limited")

// GeminiScorer maps free text to a sentiment value in [-1, 1] via the
// Gemini generateContent API. Rate-limit failures are retried under a
// bounded policy; any exhausted or non-retryable failure returns the
// neutral value alongside the error so the caller degrades deliberately.
type GeminiScorer struct {
	endpoint string
	model    string
	apiKey   string
	policy   retry.Policy
	http     *http.Client
}

var _ ports.Scorer = (*GeminiScorer)(nil)

// NewGeminiScorer builds a scorer from configuration. A nil sleep uses
// real time; tests inject a fake.
func NewGeminiScorer(endpoint, model, apiKey string, sleep func(time.Duration)) *GeminiScorer {
	if endpoint == "" {
		endpoint = defaultGeminiEndpoint
	}
	return &GeminiScorer{
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		policy: retry.Policy{
			MaxAttempts: 3,
			Backoff:     60 * time.Second,
			Retryable:   IsRateLimit,
			Sleep:       sleep,
		},
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// IsRateLimit reports whether an error carries a quota/rate-limit indication.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "quota")
}

// Score returns a bounded sentiment value for the text. Empty or
// whitespace-only input is neutral without an external call. Unparseable
// model output is neutral as well; only transport-level failures surface
// as errors.
func (g *GeminiScorer) Score(ctx context.Context, text string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	if g.apiKey == "" {
		return 0, nil
	}

	prompt := fmt.Sprintf("Analyze the sentiment of this tech news headline: '%s'. "+
		"Return ONLY a float number between -1.0 (negative) and 1.0 (positive). No explanation.", text)

	var reply string
	err := g.policy.Do(ctx, func() error {
		var callErr error
		reply, callErr = g.generate(ctx, prompt)
		return callErr
	})
	if err != nil {
		return 0, fmt.Errorf("score text: %w", err)
	}

	return parseScore(reply), nil
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiScorer) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.endpoint, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("gemini error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// parseScore extracts the first signed-decimal token and clamps it into
// the score bounds; a reply without one is neutral.
func parseScore(reply string) float64 {
	match := numberExpr.FindString(reply)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return domain.ClampScore(value)
}
