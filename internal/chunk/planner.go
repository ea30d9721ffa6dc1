// Package chunk groups caption cues into duration-bounded windows.
package chunk

import (
	"fmt"
	"slices"
	"time"

	"github.com/maauso/caption-chunker/internal/caption"
)

// Chunk is a contiguous run of cues destined for one audio+caption output pair.
// Chunks are value objects: Plan builds them once and nothing mutates them.
type Chunk struct {
	// Index is the 0-based position among chunks planned from the same
	// caption file and target duration.
	Index int
	// Cues is non-empty and sorted by start.
	Cues []caption.Cue
}

// Start returns the window start: the first cue's start.
func (c Chunk) Start() time.Duration {
	return c.Cues[0].Start
}

// End returns the window end: the last cue's end.
func (c Chunk) End() time.Duration {
	return c.Cues[len(c.Cues)-1].End
}

// Span returns the window length.
func (c Chunk) Span() time.Duration {
	return c.End() - c.Start()
}

// Caption renders the chunk's cues as WebVTT re-based to the window start.
func (c Chunk) Caption() []byte {
	return caption.Format(caption.Rebase(c.Cues, c.Start()))
}

// String returns a human-readable representation for logging.
func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d: %s-%s (%d cues)",
		c.Index,
		caption.FormatTimestamp(c.Start()),
		caption.FormatTimestamp(c.End()),
		len(c.Cues))
}

// Ceiling returns the hard span limit for a target: 1.5x the target.
// A cue ending exactly on the ceiling is still admitted.
func Ceiling(target time.Duration) time.Duration {
	return target + target/2
}

// Plan partitions cues into chunks approximating target in a single
// forward pass. Cues are stably sorted by start first. A chunk closes once
// its span reaches target, or when the next cue would end past the ceiling.
// Every cue lands in exactly one chunk; a cue longer than the ceiling forms
// a chunk of its own. No cues yield no chunks.
func Plan(cues []caption.Cue, target time.Duration) []Chunk {
	if len(cues) == 0 {
		return nil
	}

	sorted := slices.Clone(cues)
	slices.SortStableFunc(sorted, func(a, b caption.Cue) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})

	ceiling := Ceiling(target)
	var chunks []Chunk

	for i := 0; i < len(sorted); {
		anchor := sorted[i].Start
		j := i + 1
		for j < len(sorted) {
			if sorted[j-1].End-anchor >= target {
				break
			}
			if sorted[j].End-anchor > ceiling {
				break
			}
			j++
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Cues:  sorted[i:j:j],
		})
		i = j
	}

	return chunks
}
