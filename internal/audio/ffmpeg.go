package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// commandRunner executes external commands and returns their combined output.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

// osCommandRunner implements commandRunner using exec.CommandContext.
type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name and args are built by the slicer, not user input
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// durationRe matches the "Duration: HH:MM:SS.ff" line ffmpeg prints for an input.
var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// FFmpegSlicer implements Slicer using the ffmpeg CLI.
type FFmpegSlicer struct {
	ffmpegPath string
	// codec is the audio codec for exported segments; "copy" keeps the source stream.
	codec string
	cmd   commandRunner
}

// FFmpegOption configures an FFmpegSlicer.
type FFmpegOption func(*FFmpegSlicer)

// WithCodec sets the audio codec used on export (for example "libmp3lame").
// An empty codec keeps the default stream copy.
func WithCodec(codec string) FFmpegOption {
	return func(s *FFmpegSlicer) {
		if codec != "" {
			s.codec = codec
		}
	}
}

// withCommandRunner replaces the process runner. Used by tests.
func withCommandRunner(r commandRunner) FFmpegOption {
	return func(s *FFmpegSlicer) {
		s.cmd = r
	}
}

// NewFFmpegSlicer creates a new FFmpegSlicer.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegSlicer(ffmpegPath string, opts ...FFmpegOption) *FFmpegSlicer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	s := &FFmpegSlicer{
		ffmpegPath: ffmpegPath,
		codec:      "copy",
		cmd:        osCommandRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements Slicer.Load by probing the track duration with ffmpeg.
func (s *FFmpegSlicer) Load(ctx context.Context, path string) (Track, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Track{}, fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}

	// ffmpeg exits non-zero without an output file; the input banner is all we need.
	out, _ := s.cmd.CombinedOutput(ctx, s.ffmpegPath, []string{
		"-hide_banner",
		"-i", path,
	})
	if err := ctx.Err(); err != nil {
		return Track{}, fmt.Errorf("probe %s: %w", path, err)
	}

	d, err := parseDuration(string(out))
	if err != nil {
		return Track{}, fmt.Errorf("probe %s: %w", path, err)
	}
	return Track{Path: path, Duration: d}, nil
}

// Slice implements Slicer.Slice.
func (s *FFmpegSlicer) Slice(track Track, start, end time.Duration) (Segment, error) {
	return NewSegment(track, start, end)
}

// Export implements Slicer.Export. The segment is written to a uniquely
// named sibling of dst and renamed into place once ffmpeg succeeds, so
// concurrent exports to one destination never share a partial file.
func (s *FFmpegSlicer) Export(ctx context.Context, seg Segment, dst string) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// Keep the extension last so ffmpeg still infers the container.
	f, err := os.CreateTemp(dir, ".part-*"+filepath.Ext(dst))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}

	out, err := s.cmd.CombinedOutput(ctx, s.ffmpegPath, s.exportArgs(seg, tmp))
	if err != nil {
		_ = os.Remove(tmp)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg export: %w", ctxErr)
		}
		return fmt.Errorf("ffmpeg export: %w, output: %s", err, tail(out, 512))
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("move exported segment: %w", err)
	}
	return nil
}

// exportArgs builds the ffmpeg arguments that cut seg into output.
func (s *FFmpegSlicer) exportArgs(seg Segment, output string) []string {
	args := []string{
		"-y", // Overwrite output
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(seg.Start),
		"-t", formatSeconds(seg.Duration()),
		"-i", seg.Track.Path,
		"-vn",
	}
	if s.codec == "copy" {
		args = append(args, "-c", "copy")
	} else {
		args = append(args, "-c:a", s.codec)
	}
	return append(args, output)
}

// parseDuration extracts the input duration from ffmpeg output.
func parseDuration(output string) (time.Duration, error) {
	matches := durationRe.FindStringSubmatch(output)
	if len(matches) < 5 {
		return 0, ErrProbeFailed
	}

	hours, _ := strconv.Atoi(matches[1])
	minutes, _ := strconv.Atoi(matches[2])
	seconds, _ := strconv.Atoi(matches[3])

	// Fractional part precision varies (ffmpeg prints centiseconds).
	frac, _ := strconv.ParseFloat("0."+matches[4], 64)

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(frac*float64(time.Second)).Round(time.Millisecond), nil
}

// formatSeconds renders d as seconds with millisecond precision.
func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// tail returns at most n trailing bytes of b.
func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}

// Verify interface implementation at compile time.
var _ Slicer = (*FFmpegSlicer)(nil)
