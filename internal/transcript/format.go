package transcript

import "strings"

// placeholderText is emitted by some transcription engines for unintelligible audio
const placeholderText = "..."

// Format renders segments as newline-separated "<speaker>: <text>" lines.
// Segments whose trimmed text is empty or the placeholder are dropped.
func Format(segments []Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || text == placeholderText {
			continue
		}

		speaker := strings.TrimSpace(seg.Speaker)
		if speaker == "" {
			speaker = UnknownSpeaker
		}

		lines = append(lines, speaker+": "+text)
	}
	return strings.Join(lines, "\n")
}
