package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// UnknownSpeaker is used when a segment carries no speaker label
	UnknownSpeaker = "Unknown"

	// UnknownCallID is used when a record carries no call identifier
	UnknownCallID = "UNKNOWN_CALL"
)

// Segment represents one timed, speaker-attributed utterance.
// Timestamps are in seconds and have already been resolved from their field-name aliases.
type Segment struct {
	Speaker string
	Text    string
	Start   float64
	End     float64

	startErr error
	endErr   error
}

// StartErr reports why the start timestamp could not be read, or nil
func (s Segment) StartErr() error {
	return s.startErr
}

// EndErr reports why the end timestamp could not be read, or nil
func (s Segment) EndErr() error {
	return s.endErr
}

// TimingErr reports the first unreadable timestamp of the segment, or nil
func (s Segment) TimingErr() error {
	if s.startErr != nil {
		return s.startErr
	}
	return s.endErr
}

// UnmarshalJSON normalizes a raw segment object into its canonical form.
// Missing fields degrade to defaults; unreadable timestamps are recorded, not returned.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		err := fmt.Errorf("segment is not an object: %s", truncate(data))
		*s = Segment{Speaker: UnknownSpeaker, startErr: err, endErr: err}
		return nil
	}

	seg := Segment{
		Speaker: strings.TrimSpace(stringField(fields["speaker"])),
		Text:    strings.TrimSpace(stringField(fields["text"])),
	}
	if seg.Speaker == "" {
		seg.Speaker = UnknownSpeaker
	}

	seg.Start, seg.startErr = timestamp(fields, "start", "start_time")
	seg.End, seg.endErr = timestamp(fields, "end", "end_time")

	*s = seg
	return nil
}

// timestamp resolves a time field from its primary name, falling back to alias
// when the primary is absent, null, or zero.
func timestamp(fields map[string]json.RawMessage, primary, alias string) (float64, error) {
	v, err := number(fields[primary], primary)
	if err != nil {
		return 0, err
	}
	if v != 0 {
		return v, nil
	}
	return number(fields[alias], alias)
}

func number(raw json.RawMessage, name string) (float64, error) {
	if isNull(raw) {
		return 0, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%s is not a number: %s", name, truncate(raw))
	}
	return v, nil
}

// stringField renders a JSON value as text: strings as-is, null as empty, anything else verbatim.
func stringField(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func truncate(data []byte) string {
	const max = 40
	s := string(bytes.TrimSpace(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
