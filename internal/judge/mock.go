package judge

import (
	"context"
	"encoding/json"
	"fmt"

	"callqa/internal/verdict"
)

// MockProvider returns fixed, well-formed verdicts for every configured criterion.
// It lets the pipeline run end to end without credentials or network access.
type MockProvider struct {
	keys  []string
	score float64
}

// NewMockProvider creates a MockProvider scoring each key with score
func NewMockProvider(keys []string, score float64) *MockProvider {
	if len(keys) == 0 {
		keys = DefaultCriteriaKeys
	}
	return &MockProvider{keys: keys, score: score}
}

// Name implements Provider
func (m *MockProvider) Name() string { return ProviderMock }

// Complete implements Provider
func (m *MockProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	set := make(verdict.Set, len(m.keys))
	for _, key := range m.keys {
		set[key] = verdict.Verdict{
			Score:           m.score,
			Reasoning:       fmt.Sprintf("mock verdict for %s", key),
			Probability:     verdict.Low,
			EvidenceSnippet: "N/A",
		}
	}

	data, err := json.Marshal(set)
	if err != nil {
		return "", fmt.Errorf("failed to encode mock verdicts: %w", err)
	}
	return string(data), nil
}
