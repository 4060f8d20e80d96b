package verdict

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Reserved verdict keys produced by the pipeline itself rather than the rubric
const (
	SystemKey  = "SYSTEM"
	SilenceKey = "METRIC_SILENCE_SEC"
	PIIKey     = "METRIC_PII_LEAKS"
)

// Confidence is the reliability tier attached to every verdict
type Confidence string

const (
	High Confidence = "HIGH"
	Low  Confidence = "LOW"
)

// ParseConfidence maps free-form provider output onto a confidence tier.
// Anything that is not recognisably HIGH is treated as LOW.
func ParseConfidence(s string) Confidence {
	if strings.EqualFold(strings.TrimSpace(s), string(High)) {
		return High
	}
	return Low
}

// Verdict is a scored judgment for one rubric criterion or rule metric
type Verdict struct {
	Score           float64    `json:"score"`
	Reasoning       string     `json:"reasoning"`
	Probability     Confidence `json:"probability"`
	EvidenceSnippet string     `json:"evidence_snippet,omitempty"`
}

// System builds the synthetic zero-score verdict used when a record cannot be evaluated
func System(reason string) Verdict {
	return Verdict{
		Score:       0,
		Reasoning:   reason,
		Probability: High,
	}
}

// UnmarshalJSON accepts numeric or numeric-string scores and normalizes the confidence tier
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var raw struct {
		Score           json.RawMessage `json:"score"`
		Reasoning       string          `json:"reasoning"`
		Probability     string          `json:"probability"`
		EvidenceSnippet string          `json:"evidence_snippet"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	score, err := parseScore(raw.Score)
	if err != nil {
		return err
	}

	*v = Verdict{
		Score:           score,
		Reasoning:       raw.Reasoning,
		Probability:     ParseConfidence(raw.Probability),
		EvidenceSnippet: raw.EvidenceSnippet,
	}
	return nil
}

// Normalize decodes one verdict object without rejecting it over a single bad field.
// An unreadable score becomes 0 with LOW confidence and non-string text fields are kept
// as their JSON text. Only a value that is not an object is an error.
func Normalize(data json.RawMessage) (Verdict, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Verdict{}, fmt.Errorf("verdict must be an object, got %s", truncate(data))
	}

	v := Verdict{
		Reasoning:       text(fields["reasoning"]),
		Probability:     ParseConfidence(text(fields["probability"])),
		EvidenceSnippet: text(fields["evidence_snippet"]),
	}
	score, err := parseScore(fields["score"])
	if err != nil {
		v.Probability = Low
	}
	v.Score = score
	return v, nil
}

func text(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}

func truncate(data []byte) string {
	const max = 40
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func parseScore(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("score is missing")
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("score must be a number, got %s", string(raw))
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("score must be a number, got %q", s)
	}
	return n, nil
}

// Set maps criterion keys to verdicts for a single call
type Set map[string]Verdict

// Merge copies every verdict from other into s, overwriting on key collision
func (s Set) Merge(other Set) {
	for key, v := range other {
		s[key] = v
	}
}

// Keys returns the criterion keys in s
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	return keys
}
