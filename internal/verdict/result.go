package verdict

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result maps call identifiers to their verdict sets.
// Serialization preserves the order in which calls were first added.
type Result struct {
	order []string
	sets  map[string]Set
}

// NewResult creates an empty Result
func NewResult() *Result {
	return &Result{
		sets: make(map[string]Set),
	}
}

// Single wraps one verdict set under its call identifier
func Single(callID string, set Set) *Result {
	r := NewResult()
	r.Put(callID, set)
	return r
}

// Put stores set under callID. An existing entry keeps its position and is replaced.
func (r *Result) Put(callID string, set Set) (replaced bool) {
	if _, ok := r.sets[callID]; ok {
		replaced = true
	} else {
		r.order = append(r.order, callID)
	}
	r.sets[callID] = set
	return replaced
}

// Has reports whether callID is present
func (r *Result) Has(callID string) bool {
	_, ok := r.sets[callID]
	return ok
}

// Get returns the verdict set stored for callID
func (r *Result) Get(callID string) (Set, bool) {
	set, ok := r.sets[callID]
	return set, ok
}

// Len returns the number of calls in the result
func (r *Result) Len() int {
	return len(r.order)
}

// CallIDs returns the call identifiers in insertion order
func (r *Result) CallIDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// MarshalJSON renders the result as a JSON object in insertion order
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	out := bytes.NewBufferString("{")
	for i, id := range r.order {
		if i > 0 {
			out.WriteByte(',')
		}

		buf.Reset()
		if err := enc.Encode(id); err != nil {
			return nil, fmt.Errorf("failed to encode call id %q: %w", id, err)
		}
		out.Write(bytes.TrimRight(buf.Bytes(), "\n"))
		out.WriteByte(':')

		buf.Reset()
		if err := enc.Encode(r.sets[id]); err != nil {
			return nil, fmt.Errorf("failed to encode verdicts for %q: %w", id, err)
		}
		out.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}

// UnmarshalJSON reads a result object, keeping the document order of its keys
func (r *Result) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("result must be a JSON object")
	}

	fresh := NewResult()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}

		var set Set
		if err := dec.Decode(&set); err != nil {
			return fmt.Errorf("failed to decode verdicts for %q: %w", id, err)
		}
		fresh.Put(id, set)
	}

	*r = *fresh
	return nil
}
