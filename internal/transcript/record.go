package transcript

import (
	"encoding/json"
	"strings"
)

// Record is one call to be evaluated: its identifier and ordered segments
type Record struct {
	CallID   string
	Segments []Segment
}

// UnmarshalJSON applies the record defaults: an absent or null call id becomes UnknownCallID
// and a missing or non-array segment list becomes empty.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	rec := Record{CallID: UnknownCallID}
	if raw, ok := fields["call_id"]; ok && !isNull(raw) {
		rec.CallID = strings.TrimSpace(stringField(raw))
	}

	if raw, ok := fields["segments"]; ok && !isNull(raw) {
		var segments []Segment
		if err := json.Unmarshal(raw, &segments); err == nil {
			rec.Segments = segments
		}
	}

	*r = rec
	return nil
}
