package caption

import (
	"bytes"
	"strings"
	"time"
)

// Rebase returns copies of cues shifted so that origin becomes time zero.
// Starts are clamped at zero and ends never precede their start.
// Header is rewritten to match the new timestamps.
func Rebase(cues []Cue, origin time.Duration) []Cue {
	out := make([]Cue, len(cues))
	for i, c := range cues {
		start := max(0, c.Start-origin)
		end := max(start, c.End-origin)

		text := make([]string, len(c.Text))
		copy(text, c.Text)

		out[i] = Cue{
			ID:       c.ID,
			Start:    start,
			End:      end,
			Text:     text,
			Settings: c.Settings,
			Header:   timingLine(start, end, c.Settings),
		}
	}
	return out
}

// Format renders cues as a WebVTT document. Cues without text whose span
// is zero are omitted; with nothing left to write the result is still a
// valid header-only document.
func Format(cues []Cue) []byte {
	var buf bytes.Buffer
	buf.WriteString(Header)
	buf.WriteString("\n\n")

	for _, c := range cues {
		if c.Span() == 0 && !c.HasText() {
			continue
		}
		if c.ID != "" {
			buf.WriteString(c.ID)
			buf.WriteString("\n")
		}
		buf.WriteString(timingLine(c.Start, c.End, c.Settings))
		buf.WriteString("\n")
		for _, l := range c.Text {
			// A blank line would terminate the block early.
			if strings.TrimSpace(l) == "" {
				continue
			}
			buf.WriteString(l)
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

func timingLine(start, end time.Duration, settings string) string {
	return FormatTimestamp(start) + " " + timingDelimiter + " " + FormatTimestamp(end) + settings
}
