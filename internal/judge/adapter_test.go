package judge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"callqa/internal/verdict"
)

const sampleReply = `{
  "KR2.1": {"score": 3, "reasoning": "Operator salamlaşdı", "evidence_snippet": "Salam", "probability": "HIGH"},
  "KR2.5": {"score": 0, "reasoning": "Kart nömrəsi dayandırılmadı", "evidence_snippet": "4111 1234 5678 9010", "probability": "HIGH"}
}`

func TestAdapter_Evaluate(t *testing.T) {
	t.Run("should return parsed verdicts on success", func(t *testing.T) {
		// Arrange
		var captured Prompt
		provider := ProviderFunc(func(ctx context.Context, p Prompt) (string, error) {
			captured = p
			return sampleReply, nil
		})
		adapter, err := NewAdapter(provider, DefaultPromptOptions(), zaptest.NewLogger(t), nil)
		require.NoError(t, err)

		// Act
		outcome := adapter.Evaluate(context.Background(), "call-1", "Operator: Salam", "KR2.1: greeting", nil)

		// Assert
		assert.True(t, outcome.OK())
		require.Len(t, outcome.Verdicts, 2)
		assert.Equal(t, 3.0, outcome.Verdicts["KR2.1"].Score)
		assert.Equal(t, verdict.High, outcome.Verdicts["KR2.5"].Probability)
		assert.Contains(t, captured.System, "KR2.1: greeting")
		assert.Equal(t, "Transcript:\nOperator: Salam", captured.User)
	})

	t.Run("should degrade to an empty set when the provider fails", func(t *testing.T) {
		// Arrange
		core, logs := observer.New(zapcore.ErrorLevel)
		provider := ProviderFunc(func(ctx context.Context, p Prompt) (string, error) {
			return "", errors.New("quota exceeded")
		})
		adapter, err := NewAdapter(provider, DefaultPromptOptions(), zap.New(core), nil)
		require.NoError(t, err)

		// Act
		outcome := adapter.Evaluate(context.Background(), "call-2", "A: hi", "criteria", nil)

		// Assert
		assert.False(t, outcome.OK())
		assert.NotNil(t, outcome.Verdicts)
		assert.Empty(t, outcome.Verdicts)
		assert.Contains(t, outcome.Skipped.Error(), "quota exceeded")
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "call-2", logs.All()[0].ContextMap()["call_id"])
	})

	t.Run("should degrade to an empty set on a malformed reply", func(t *testing.T) {
		provider := ProviderFunc(func(ctx context.Context, p Prompt) (string, error) {
			return "I'm sorry, I cannot score this call.", nil
		})
		adapter, err := NewAdapter(provider, DefaultPromptOptions(), zaptest.NewLogger(t), nil)
		require.NoError(t, err)

		outcome := adapter.Evaluate(context.Background(), "call-3", "A: hi", "criteria", nil)

		assert.False(t, outcome.OK())
		assert.Empty(t, outcome.Verdicts)
		assert.Contains(t, outcome.Skipped.Error(), "failed to parse judgment response")
	})

	t.Run("should recover from a panicking provider", func(t *testing.T) {
		provider := ProviderFunc(func(ctx context.Context, p Prompt) (string, error) {
			panic("boom")
		})
		adapter, err := NewAdapter(provider, DefaultPromptOptions(), zaptest.NewLogger(t), nil)
		require.NoError(t, err)

		outcome := adapter.Evaluate(context.Background(), "call-4", "A: hi", "criteria", nil)

		assert.False(t, outcome.OK())
		assert.Contains(t, outcome.Skipped.Error(), "panicked")
	})

	t.Run("should call the provider exactly once even on failure", func(t *testing.T) {
		calls := 0
		provider := ProviderFunc(func(ctx context.Context, p Prompt) (string, error) {
			calls++
			return "", errors.New("unavailable")
		})
		adapter, err := NewAdapter(provider, DefaultPromptOptions(), zaptest.NewLogger(t), nil)
		require.NoError(t, err)

		adapter.Evaluate(context.Background(), "call-5", "A: hi", "criteria", nil)

		assert.Equal(t, 1, calls)
	})

	t.Run("should record successes and failures on the monitor", func(t *testing.T) {
		fail := true
		provider := ProviderFunc(func(ctx context.Context, p Prompt) (string, error) {
			if fail {
				return "", errors.New("down")
			}
			return "{}", nil
		})
		adapter, err := NewAdapter(provider, DefaultPromptOptions(), zaptest.NewLogger(t), nil)
		require.NoError(t, err)

		adapter.Evaluate(context.Background(), "a", "A: hi", "criteria", nil)
		fail = false
		adapter.Evaluate(context.Background(), "b", "A: hi", "criteria", nil)

		metrics := adapter.Monitor().GetMetrics()
		assert.Equal(t, int64(2), metrics.TotalJudgments)
		assert.Equal(t, int64(1), metrics.FailedJudgments)
		assert.Equal(t, "b", metrics.LastCallID)
	})

	t.Run("should forward deterministic findings to the prompt", func(t *testing.T) {
		var captured Prompt
		provider := ProviderFunc(func(ctx context.Context, p Prompt) (string, error) {
			captured = p
			return "{}", nil
		})
		adapter, err := NewAdapter(provider, DefaultPromptOptions(), zaptest.NewLogger(t), nil)
		require.NoError(t, err)

		adapter.Evaluate(context.Background(), "c", "A: hi", "criteria", []string{"Potential Credit Card Number detected"})

		assert.Contains(t, captured.System, "- Potential Credit Card Number detected")
	})
}

func TestNewAdapter(t *testing.T) {
	t.Run("should reject a nil provider", func(t *testing.T) {
		adapter, err := NewAdapter(nil, DefaultPromptOptions(), nil, nil)

		assert.Error(t, err)
		assert.Nil(t, adapter)
	})

	t.Run("should keep well-formed verdicts when another one is unreadable", func(t *testing.T) {
		// Arrange
		core, logs := observer.New(zapcore.WarnLevel)
		provider := ProviderFunc(func(ctx context.Context, p Prompt) (string, error) {
			return `{
  "KR2.1": {"score": 3, "reasoning": "Salamlaşdı", "probability": "HIGH"},
  "KR2.2": {"score": null, "reasoning": "Sübut yoxdur", "probability": "HIGH"},
  "KR2.3": {"score": 2, "reasoning": ["list"], "probability": "HIGH"},
  "KR2.4": "yaxşı"
}`, nil
		})
		adapter, err := NewAdapter(provider, DefaultPromptOptions(), zap.New(core), nil)
		require.NoError(t, err)

		// Act
		outcome := adapter.Evaluate(context.Background(), "call-mixed", "A: hi", "criteria", nil)

		// Assert
		assert.True(t, outcome.OK())
		assert.ElementsMatch(t, []string{"KR2.1", "KR2.2", "KR2.3"}, outcome.Verdicts.Keys())
		assert.Equal(t, verdict.Verdict{Score: 3, Reasoning: "Salamlaşdı", Probability: verdict.High}, outcome.Verdicts["KR2.1"])
		assert.Equal(t, verdict.Verdict{Score: 0, Reasoning: "Sübut yoxdur", Probability: verdict.Low}, outcome.Verdicts["KR2.2"])
		assert.Equal(t, `["list"]`, outcome.Verdicts["KR2.3"].Reasoning)
		dropped := logs.FilterMessage("dropping unreadable verdict").All()
		require.Len(t, dropped, 1)
		assert.Equal(t, "KR2.4", dropped[0].ContextMap()["criterion"])
	})

	t.Run("should tolerate a nil logger", func(t *testing.T) {
		adapter, err := NewAdapter(NewMockProvider(nil, 1), DefaultPromptOptions(), nil, nil)

		require.NoError(t, err)
		assert.NotNil(t, adapter.Monitor())
	})
}

func TestMockProvider(t *testing.T) {
	t.Run("should produce a verdict for every configured key", func(t *testing.T) {
		// Arrange
		adapter, err := NewAdapter(NewMockProvider([]string{"A1", "A2"}, 2), DefaultPromptOptions(), zaptest.NewLogger(t), nil)
		require.NoError(t, err)

		// Act
		outcome := adapter.Evaluate(context.Background(), "call", "A: hi", "criteria", nil)

		// Assert
		require.True(t, outcome.OK())
		assert.ElementsMatch(t, []string{"A1", "A2"}, outcome.Verdicts.Keys())
		assert.Equal(t, 2.0, outcome.Verdicts["A1"].Score)
		assert.Equal(t, "N/A", outcome.Verdicts["A2"].EvidenceSnippet)
	})

	t.Run("should default to the rubric keys", func(t *testing.T) {
		reply, err := NewMockProvider(nil, 1).Complete(context.Background(), Prompt{})

		require.NoError(t, err)
		set, err := ParseVerdicts(reply)
		require.NoError(t, err)
		assert.ElementsMatch(t, DefaultCriteriaKeys, set.Keys())
	})

	t.Run("should honour a cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewMockProvider(nil, 1).Complete(ctx, Prompt{})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewProvider(t *testing.T) {
	t.Run("should build the mock provider", func(t *testing.T) {
		p, err := NewProvider(ProviderSettings{Name: "MOCK"}, zap.NewNop())

		require.NoError(t, err)
		assert.Equal(t, ProviderMock, p.Name())
	})

	t.Run("should fail without an API key for openai", func(t *testing.T) {
		_, err := NewProvider(ProviderSettings{Name: "openai"}, zap.NewNop())

		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("should reject unknown providers", func(t *testing.T) {
		_, err := NewProvider(ProviderSettings{Name: "oracle"}, zap.NewNop())

		var unknown *UnknownProviderError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "oracle", unknown.Name)
	})
}
