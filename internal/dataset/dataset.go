// Package dataset reads evaluation datasets: a JSON array of call records,
// each either bare or nested under an "input" key.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"callqa/internal/transcript"
)

const inputKey = "input"

// Load reads and decodes the dataset at path
func Load(path string, logger *zap.Logger) ([]transcript.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	records, err := Decode(f, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", path, err)
	}
	return records, nil
}

// Decode reads a dataset from r. Only a document that is not a JSON array is an error;
// an item that is not an object becomes a record with the default call id and no segments.
func Decode(r io.Reader, logger *zap.Logger) ([]transcript.Record, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var items []json.RawMessage
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("dataset must be a JSON array of records: %w", err)
	}

	records := make([]transcript.Record, 0, len(items))
	for i, item := range items {
		var rec transcript.Record
		if err := json.Unmarshal(unwrap(item), &rec); err != nil {
			logger.Warn("dataset item is not an object, evaluating as empty record",
				zap.Int("index", i),
				zap.Error(err))
			rec = transcript.Record{CallID: transcript.UnknownCallID}
		}
		records = append(records, rec)
	}

	logger.Debug("dataset decoded", zap.Int("records", len(records)))
	return records, nil
}

// unwrap returns the "input" object of item when present, otherwise item itself
func unwrap(item json.RawMessage) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return item
	}
	inner, ok := fields[inputKey]
	if !ok {
		return item
	}
	trimmed := bytes.TrimSpace(inner)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return item
	}
	return inner
}
