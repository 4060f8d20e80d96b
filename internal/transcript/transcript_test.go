package transcript

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment_UnmarshalJSON(t *testing.T) {
	t.Run("should read primary timestamp names", func(t *testing.T) {
		// Arrange
		input := `{"speaker":" Operator ","text":"  Salam  ","start":1.5,"end":2.25}`

		// Act
		var seg Segment
		err := json.Unmarshal([]byte(input), &seg)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Operator", seg.Speaker)
		assert.Equal(t, "Salam", seg.Text)
		assert.Equal(t, 1.5, seg.Start)
		assert.Equal(t, 2.25, seg.End)
		assert.NoError(t, seg.TimingErr())
	})

	t.Run("should fall back to the start_time and end_time aliases", func(t *testing.T) {
		var seg Segment
		err := json.Unmarshal([]byte(`{"text":"Hi","start_time":3,"end_time":4.5}`), &seg)

		require.NoError(t, err)
		assert.Equal(t, 3.0, seg.Start)
		assert.Equal(t, 4.5, seg.End)
	})

	t.Run("should fall back to the alias when the primary value is zero", func(t *testing.T) {
		var seg Segment
		err := json.Unmarshal([]byte(`{"start":0,"start_time":7,"end":null,"end_time":8}`), &seg)

		require.NoError(t, err)
		assert.Equal(t, 7.0, seg.Start)
		assert.Equal(t, 8.0, seg.End)
	})

	t.Run("should default missing fields", func(t *testing.T) {
		var seg Segment
		err := json.Unmarshal([]byte(`{}`), &seg)

		require.NoError(t, err)
		assert.Equal(t, UnknownSpeaker, seg.Speaker)
		assert.Empty(t, seg.Text)
		assert.Zero(t, seg.Start)
		assert.Zero(t, seg.End)
		assert.NoError(t, seg.TimingErr())
	})

	t.Run("should record malformed timestamps without failing the decode", func(t *testing.T) {
		var seg Segment
		err := json.Unmarshal([]byte(`{"text":"Hi","start":"soon","end":2}`), &seg)

		require.NoError(t, err)
		assert.Error(t, seg.TimingErr())
		assert.Contains(t, seg.TimingErr().Error(), "start is not a number")
		assert.Equal(t, "Hi", seg.Text)
	})

	t.Run("should keep start and end errors apart", func(t *testing.T) {
		var seg Segment
		err := json.Unmarshal([]byte(`{"text":"Hi","start":1,"end":"later"}`), &seg)

		require.NoError(t, err)
		assert.NoError(t, seg.StartErr())
		assert.Equal(t, 1.0, seg.Start)
		assert.ErrorContains(t, seg.EndErr(), "end is not a number")
		assert.Equal(t, seg.EndErr(), seg.TimingErr())
	})

	t.Run("should treat a non-object segment as empty with malformed timing", func(t *testing.T) {
		var seg Segment
		err := json.Unmarshal([]byte(`"just text"`), &seg)

		require.NoError(t, err)
		assert.Empty(t, seg.Text)
		assert.Error(t, seg.TimingErr())
	})

	t.Run("should stringify non-string text values", func(t *testing.T) {
		var seg Segment
		err := json.Unmarshal([]byte(`{"speaker":7,"text":12345}`), &seg)

		require.NoError(t, err)
		assert.Equal(t, "7", seg.Speaker)
		assert.Equal(t, "12345", seg.Text)
	})
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	t.Run("should decode call id and ordered segments", func(t *testing.T) {
		// Arrange
		input := `{"call_id":"call-001","segments":[
			{"speaker":"Operator","text":"Salam","start":0,"end":1.2},
			{"speaker":"Customer","text":"Salam, kömək lazımdır","start_time":1.5,"end_time":3}
		]}`

		// Act
		var rec Record
		err := json.Unmarshal([]byte(input), &rec)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "call-001", rec.CallID)
		require.Len(t, rec.Segments, 2)
		assert.Equal(t, "Customer", rec.Segments[1].Speaker)
		assert.Equal(t, 1.5, rec.Segments[1].Start)
	})

	t.Run("should default a missing call id and segments", func(t *testing.T) {
		var rec Record
		err := json.Unmarshal([]byte(`{}`), &rec)

		require.NoError(t, err)
		assert.Equal(t, UnknownCallID, rec.CallID)
		assert.Empty(t, rec.Segments)
	})

	t.Run("should default a null call id", func(t *testing.T) {
		var rec Record
		err := json.Unmarshal([]byte(`{"call_id":null}`), &rec)

		require.NoError(t, err)
		assert.Equal(t, UnknownCallID, rec.CallID)
	})

	t.Run("should keep a blank call id that is present", func(t *testing.T) {
		var rec Record
		err := json.Unmarshal([]byte(`{"call_id":"","segments":[]}`), &rec)

		require.NoError(t, err)
		assert.Equal(t, "", rec.CallID)
	})

	t.Run("should stringify numeric call ids", func(t *testing.T) {
		var rec Record
		err := json.Unmarshal([]byte(`{"call_id":42,"segments":[]}`), &rec)

		require.NoError(t, err)
		assert.Equal(t, "42", rec.CallID)
	})

	t.Run("should treat non-array segments as empty", func(t *testing.T) {
		var rec Record
		err := json.Unmarshal([]byte(`{"call_id":"x","segments":"oops"}`), &rec)

		require.NoError(t, err)
		assert.Empty(t, rec.Segments)
	})

	t.Run("should reject a record that is not an object", func(t *testing.T) {
		var rec Record
		err := json.Unmarshal([]byte(`[1]`), &rec)

		assert.Error(t, err)
	})
}

func TestFormat(t *testing.T) {
	t.Run("should drop placeholder segments", func(t *testing.T) {
		// Arrange
		segments := []Segment{
			{Speaker: "A", Text: "Hi"},
			{Speaker: "B", Text: "..."},
		}

		// Act
		out := Format(segments)

		// Assert
		assert.Equal(t, "A: Hi", out)
	})

	t.Run("should drop blank text and trim fields", func(t *testing.T) {
		segments := []Segment{
			{Speaker: "  Operator ", Text: "  Xoş gəlmisiniz  "},
			{Speaker: "Customer", Text: "   "},
			{Speaker: "", Text: "Təşəkkürlər"},
			{Speaker: "Customer", Text: " ... "},
		}

		out := Format(segments)

		assert.Equal(t, "Operator: Xoş gəlmisiniz\nUnknown: Təşəkkürlər", out)
	})

	t.Run("should return empty text for no segments", func(t *testing.T) {
		assert.Empty(t, Format(nil))
	})

	t.Run("should be deterministic", func(t *testing.T) {
		segments := []Segment{{Speaker: "A", Text: "one"}, {Speaker: "B", Text: "two"}}

		assert.Equal(t, Format(segments), Format(segments))
	})
}
