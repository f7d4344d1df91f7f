package llm

import (
	"context"
	"hash/fnv"

	"trendsense/internal/ports"
)

// MockScorer is the demo-mode scorer: it derives a deterministic
// pseudo-random score from the text itself, so repeated runs stay stable
// and no external call is ever made.
type MockScorer struct{}

var _ ports.Scorer = (*MockScorer)(nil)

// NewMockScorer returns the demo-mode scorer.
func NewMockScorer() *MockScorer {
	return &MockScorer{}
}

// Score hashes the text into [-1, 1]. Empty input is neutral, matching
// the real scorer's contract.
func (m *MockScorer) Score(_ context.Context, text string) (float64, error) {
	if text == "" {
		return 0, nil
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	// Map the hash onto [-1, 1] with two decimal places of spread.
	return float64(int32(h.Sum32()%201)-100) / 100, nil
}
