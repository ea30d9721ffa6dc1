// Package audio provides the audio slicing port and its ffmpeg implementation.
// Callers treat tracks and segments as opaque handles: load a source once,
// cut a window out of it, and export the window to a file.
package audio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Static errors for audio slicing.
var (
	// ErrInputNotFound is returned when the source audio file does not exist.
	ErrInputNotFound = errors.New("audio: input file does not exist")
	// ErrInvertedWindow is returned when a window ends before it starts.
	ErrInvertedWindow = errors.New("audio: window end precedes start")
	// ErrWindowOutOfRange is returned when a window starts at or past the end of the track.
	ErrWindowOutOfRange = errors.New("audio: window starts past end of track")
	// ErrProbeFailed is returned when the track duration cannot be determined.
	ErrProbeFailed = errors.New("audio: could not determine duration")
)

// Track is a loaded source audio file.
type Track struct {
	// Path is the source file path.
	Path string
	// Duration is the probed length of the track.
	Duration time.Duration
}

// Segment is a window of a track, ready to be exported.
type Segment struct {
	Track Track
	Start time.Duration
	End   time.Duration
}

// Duration returns the segment length.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// NewSegment validates a window against a track. The end is clamped to the
// track duration when the duration is known.
func NewSegment(track Track, start, end time.Duration) (Segment, error) {
	if start < 0 || end < start {
		return Segment{}, fmt.Errorf("%w: %s-%s", ErrInvertedWindow, start, end)
	}
	if track.Duration > 0 {
		if start >= track.Duration {
			return Segment{}, fmt.Errorf("%w: start %s, track %s", ErrWindowOutOfRange, start, track.Duration)
		}
		end = min(end, track.Duration)
	}
	return Segment{Track: track, Start: start, End: end}, nil
}

// Slicer loads source tracks, cuts windows and writes them to disk.
type Slicer interface {
	// Load probes a source audio file and returns a handle to it.
	Load(ctx context.Context, path string) (Track, error)

	// Slice returns the [start, end] window of track.
	// Returns ErrInvertedWindow when end precedes start.
	Slice(track Track, start, end time.Duration) (Segment, error)

	// Export writes seg to dst. The file appears at dst only once complete.
	Export(ctx context.Context, seg Segment, dst string) error
}
