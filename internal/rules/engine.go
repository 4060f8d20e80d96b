package rules

import (
	"fmt"
	"math"
	"regexp"

	"go.uber.org/zap"

	"callqa/internal/transcript"
)

const (
	// DefaultMinDurationSec is the shortest call that is still worth evaluating
	DefaultMinDurationSec = 0.1

	// CardNumberLeak is reported when text contains something shaped like a payment card number
	CardNumberLeak = "Potential Credit Card Number detected"

	// 13-19 digits, optionally separated by spaces or hyphens
	cardNumberPattern = `\b(?:\d[ -]*?){13,19}\b`
)

// Integrity is the outcome of the transcript integrity check
type Integrity struct {
	Valid  bool
	Reason string
}

// Engine runs deterministic checks that need no judgment provider
type Engine struct {
	minDurationSec float64
	logger         *zap.Logger
	// Pre-compiled for reuse across records
	cardNumberRegex *regexp.Regexp
}

// NewEngine creates an Engine with the default duration threshold
func NewEngine() *Engine {
	return NewEngineWithLogger(DefaultMinDurationSec, zap.NewNop())
}

// NewEngineWithLogger creates an Engine with the given duration threshold and logger
func NewEngineWithLogger(minDurationSec float64, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minDurationSec < 0 {
		minDurationSec = DefaultMinDurationSec
	}
	return &Engine{
		minDurationSec:  minDurationSec,
		logger:          logger,
		cardNumberRegex: regexp.MustCompile(cardNumberPattern),
	}
}

// CheckIntegrity rejects empty transcripts and transcripts shorter than the duration threshold.
// When the first start or the last end cannot be read the duration is not enforced.
func (e *Engine) CheckIntegrity(segments []transcript.Segment) Integrity {
	if len(segments) == 0 {
		return Integrity{Valid: false, Reason: "Empty transcript"}
	}

	first, last := segments[0], segments[len(segments)-1]
	if err := first.StartErr(); err != nil {
		e.logger.Debug("duration check skipped, unreadable first segment start", zap.Error(err))
		return Integrity{Valid: true}
	}
	if err := last.EndErr(); err != nil {
		e.logger.Debug("duration check skipped, unreadable last segment end", zap.Error(err))
		return Integrity{Valid: true}
	}

	duration := last.End - first.Start
	if duration < e.minDurationSec {
		e.logger.Debug("transcript below minimum duration",
			zap.Float64("duration_sec", duration),
			zap.Float64("min_duration_sec", e.minDurationSec))
		return Integrity{
			Valid:  false,
			Reason: fmt.Sprintf("Audio too short (<%gs)", e.minDurationSec),
		}
	}

	return Integrity{Valid: true}
}

// CalculateSilence sums the gaps between consecutive segments in a single pass.
// The running end time never decreases, so overlapping segments add no silence.
func (e *Engine) CalculateSilence(segments []transcript.Segment) (float64, error) {
	var total, lastEnd float64

	for i, seg := range segments {
		if err := seg.TimingErr(); err != nil {
			return 0, fmt.Errorf("segment %d: %w", i, err)
		}
		if seg.Start > lastEnd {
			total += seg.Start - lastEnd
		}
		lastEnd = math.Max(lastEnd, seg.End)
	}

	return total, nil
}

// DetectPII returns a description of every class of sensitive data found in text
func (e *Engine) DetectPII(text string) []string {
	leaks := []string{}
	if text == "" {
		return leaks
	}

	if e.cardNumberRegex.MatchString(text) {
		leaks = append(leaks, CardNumberLeak)
	}

	if len(leaks) > 0 {
		e.logger.Debug("sensitive data pattern matched", zap.Strings("leaks", leaks))
	}
	return leaks
}

// RoundSeconds rounds a duration in seconds to millisecond precision
func RoundSeconds(sec float64) float64 {
	return math.Round(sec*1000) / 1000
}
