// Package output writes evaluation results as an indented JSON envelope.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"callqa/internal/verdict"
)

// JSONOutput writes evaluation results to a writer
type JSONOutput struct {
	writer io.Writer
	logger *zap.Logger
}

// NewJSONOutput creates a new JSONOutput instance
func NewJSONOutput(writer io.Writer, logger *zap.Logger) *JSONOutput {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONOutput{
		writer: writer,
		logger: logger,
	}
}

// WriteResult writes result with two-space indentation. Non-ASCII text and
// markup characters are written as-is.
func (jo *JSONOutput) WriteResult(result *verdict.Result) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}

	enc := json.NewEncoder(jo.writer)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		jo.logger.Error("failed to write JSON output", zap.Error(err))
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	jo.logger.Debug("output JSON result", zap.Int("calls", result.Len()))
	return nil
}

// WriteFile writes result to path, creating parent directories as needed
func WriteFile(path string, result *verdict.Result, logger *zap.Logger) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", path, err)
	}

	if err := NewJSONOutput(f, logger).WriteResult(result); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file %s: %w", path, err)
	}
	return nil
}

// ReadFile loads a result previously written by WriteFile
func ReadFile(path string) (*verdict.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results %s: %w", path, err)
	}
	result := verdict.NewResult()
	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("failed to decode results %s: %w", path, err)
	}
	return result, nil
}
