// Package caption parses and writes WebVTT caption files.
// It converts caption text into ordered Cue records and re-emits cues
// as valid WebVTT with timestamps shifted to a new origin.
package caption

import (
	"fmt"
	"strings"
	"time"
)

// Header is the token that opens every WebVTT file.
const Header = "WEBVTT"

// Cue is one timed caption entry.
type Cue struct {
	// ID is the optional cue identifier line that preceded the timing line.
	ID string
	// Start is the cue start relative to the source track.
	Start time.Duration
	// End is the cue end relative to the source track. Never before Start.
	End time.Duration
	// Text holds the spoken-text lines. Empty for styling-only cues.
	Text []string
	// Header is the original timing line, verbatim.
	Header string
	// Settings is everything after the end timestamp on the timing line
	// (positioning and alignment directives), leading whitespace included.
	Settings string
}

// Span returns the cue length.
func (c Cue) Span() time.Duration {
	return c.End - c.Start
}

// HasText reports whether any text line carries non-whitespace content.
func (c Cue) HasText() bool {
	for _, line := range c.Text {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}

// String returns a short representation for logging.
func (c Cue) String() string {
	return fmt.Sprintf("%s --> %s %q", FormatTimestamp(c.Start), FormatTimestamp(c.End), strings.Join(c.Text, " "))
}
