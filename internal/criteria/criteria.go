// Package criteria loads the rubric text handed to the judgment provider.
// The content is opaque: plain text is used verbatim and YAML is only normalised.
package criteria

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Load reads the criteria at path. Files ending in .yaml or .yml are parsed and
// re-rendered as canonical YAML; anything else is returned as written.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read criteria %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		text, err := Canonicalize(data)
		if err != nil {
			return "", fmt.Errorf("failed to parse criteria %s: %w", path, err)
		}
		return text, nil
	default:
		return string(data), nil
	}
}

// Canonicalize parses YAML and renders it back with stable formatting
func Canonicalize(data []byte) (string, error) {
	var doc yaml.MapSlice
	if err := yaml.Unmarshal(data, &doc); err != nil {
		// Top-level scalars and sequences are valid criteria documents too
		var generic interface{}
		if err2 := yaml.Unmarshal(data, &generic); err2 != nil {
			return "", err
		}
		return render(generic)
	}
	if doc == nil {
		return "", nil
	}
	return render(doc)
}

func render(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// Resolve loads the criteria for a run. An explicit path must exist; a defaulted
// path that is missing yields empty criteria, which disables delegated judgment.
func Resolve(path string, explicit bool, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			logger.Warn("no criteria file found, delegated judgment disabled", zap.String("path", path))
			return "", nil
		}
	}

	text, err := Load(path)
	if err != nil {
		return "", err
	}
	logger.Info("criteria loaded", zap.String("path", path), zap.Int("bytes", len(text)))
	return text, nil
}
