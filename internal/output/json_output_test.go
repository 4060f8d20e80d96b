package output

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"callqa/internal/verdict"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func sampleResult() *verdict.Result {
	result := verdict.NewResult()
	result.Put("call-b", verdict.Set{
		"KR2.1": {Score: 3, Reasoning: "Operator salamlaşdı <təşəkkür>", Probability: verdict.High, EvidenceSnippet: "Salam"},
	})
	result.Put("call-a", verdict.Set{
		verdict.SystemKey: verdict.System("Empty transcript"),
	})
	return result
}

func TestJSONOutput_WriteResult(t *testing.T) {
	t.Run("should write an indented envelope in insertion order", func(t *testing.T) {
		// Arrange
		var buf bytes.Buffer
		out := NewJSONOutput(&buf, zaptest.NewLogger(t))

		// Act
		err := out.WriteResult(sampleResult())

		// Assert
		require.NoError(t, err)
		expected := `{
  "call-b": {
    "KR2.1": {
      "score": 3,
      "reasoning": "Operator salamlaşdı <təşəkkür>",
      "probability": "HIGH",
      "evidence_snippet": "Salam"
    }
  },
  "call-a": {
    "SYSTEM": {
      "score": 0,
      "reasoning": "Empty transcript",
      "probability": "HIGH"
    }
  }
}
`
		assert.Equal(t, expected, buf.String())
	})

	t.Run("should write an empty object for an empty result", func(t *testing.T) {
		var buf bytes.Buffer

		err := NewJSONOutput(&buf, nil).WriteResult(verdict.NewResult())

		require.NoError(t, err)
		assert.Equal(t, "{}\n", buf.String())
	})

	t.Run("should return error for nil result", func(t *testing.T) {
		err := NewJSONOutput(&bytes.Buffer{}, nil).WriteResult(nil)

		assert.Error(t, err)
	})

	t.Run("should report writer failures", func(t *testing.T) {
		err := NewJSONOutput(failingWriter{}, zaptest.NewLogger(t)).WriteResult(sampleResult())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to write JSON output")
	})
}

func TestWriteFile(t *testing.T) {
	t.Run("should create directories and round-trip the result", func(t *testing.T) {
		// Arrange
		path := filepath.Join(t.TempDir(), "nested", "results.json")

		// Act
		err := WriteFile(path, sampleResult(), zaptest.NewLogger(t))
		require.NoError(t, err)
		loaded, err := ReadFile(path)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"call-b", "call-a"}, loaded.CallIDs())
		set, ok := loaded.Get("call-b")
		require.True(t, ok)
		assert.Equal(t, "Salam", set["KR2.1"].EvidenceSnippet)
	})

	t.Run("should fail to read a missing file", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "none.json"))

		assert.Error(t, err)
	})
}
