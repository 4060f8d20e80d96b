package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"callqa/internal/verdict"
)

var errNoJSONObject = errors.New("no json object found")

// ParseVerdicts decodes the provider reply into a verdict set.
// Prose or markdown fences around the JSON object are ignored.
func ParseVerdicts(content string) (verdict.Set, error) {
	set, _, err := parseReply(content)
	return set, err
}

// parseReply decodes every criterion independently. Keys whose value is not a
// verdict object are left out of the set and reported in dropped.
func parseReply(content string) (set verdict.Set, dropped map[string]error, err error) {
	obj := extractJSONObject(content)
	if obj == "" {
		return nil, nil, errNoJSONObject
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to decode verdicts: %w", err)
	}

	set = make(verdict.Set, len(raw))
	for key, value := range raw {
		v, err := verdict.Normalize(value)
		if err != nil {
			if dropped == nil {
				dropped = make(map[string]error)
			}
			dropped[key] = err
			continue
		}
		set[key] = v
	}
	return set, dropped, nil
}

// extractJSONObject returns the first balanced {...} in input, honouring string escapes
func extractJSONObject(input string) string {
	start := strings.Index(input, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}
