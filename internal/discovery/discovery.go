// Package discovery pairs source audio tracks with their caption files.
//
// The audio tree is laid out as <root>/<track-id>/<variant>.<audioExt> and the
// caption tree as <root>/<track-id>/<name>.<captionExt>. Both trees may share
// the same root.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// ErrSourceNotFound is returned when the audio root cannot be read.
var ErrSourceNotFound = errors.New("source directory not found")

// Defaults applied by Options.withDefaults.
const (
	DefaultAudioExt               = ".mp3"
	DefaultCaptionExt             = ".vtt"
	DefaultPreferredCaptionSuffix = ".whisper.auto.vtt"
)

// Options controls which files are considered.
type Options struct {
	// AudioExt is the extension of variant audio files, including the dot.
	AudioExt string
	// CaptionExt is the extension of caption files, including the dot.
	CaptionExt string
	// PreferredCaptionSuffix selects a single caption file when present.
	// When no file carries the suffix every caption file is used.
	PreferredCaptionSuffix string
}

func (o Options) withDefaults() Options {
	if o.AudioExt == "" {
		o.AudioExt = DefaultAudioExt
	}
	if o.CaptionExt == "" {
		o.CaptionExt = DefaultCaptionExt
	}
	o.AudioExt = dotted(o.AudioExt)
	o.CaptionExt = dotted(o.CaptionExt)
	return o
}

func dotted(ext string) string {
	if strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// Variant is one audio rendition of a track, such as a noise level.
type Variant struct {
	Name string
	Path string
}

// Caption is one caption file belonging to a track.
type Caption struct {
	// Base is the file name without the caption extension; it prefixes
	// every output file derived from this caption.
	Base string
	Path string
}

// Track groups the audio variants and caption files sharing a track id.
type Track struct {
	ID       string
	Variants []Variant
	Captions []Caption
}

// Problem records a track that could not be scheduled.
type Problem struct {
	TrackID string
	Reason  string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.TrackID, p.Reason)
}

// Result is the outcome of a discovery pass. Tracks only contains entries
// with at least one variant and one caption.
type Result struct {
	Tracks   []Track
	Problems []Problem
}

// Discover walks audioRoot and captionRoot on disk. An empty captionRoot
// means captions live next to the audio.
func Discover(audioRoot, captionRoot string, opts Options) (Result, error) {
	if captionRoot == "" {
		captionRoot = audioRoot
	}

	info, err := os.Stat(audioRoot)
	if err != nil || !info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s", ErrSourceNotFound, audioRoot)
	}

	res, err := Scan(os.DirFS(audioRoot), os.DirFS(captionRoot), opts)
	if err != nil {
		return Result{}, err
	}

	for i := range res.Tracks {
		t := &res.Tracks[i]
		for k := range t.Variants {
			t.Variants[k].Path = filepath.Join(audioRoot, filepath.FromSlash(t.Variants[k].Path))
		}
		for k := range t.Captions {
			t.Captions[k].Path = filepath.Join(captionRoot, filepath.FromSlash(t.Captions[k].Path))
		}
	}
	return res, nil
}

// Scan performs discovery over abstract file systems. Returned paths are
// slash-separated and relative to the respective file system.
func Scan(audioFS, captionFS fs.FS, opts Options) (Result, error) {
	opts = opts.withDefaults()

	dirs, err := fs.ReadDir(audioFS, ".")
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSourceNotFound, err)
	}

	var res Result
	for _, d := range dirs {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		trackID := d.Name()

		variants, err := findVariants(audioFS, trackID, opts.AudioExt)
		if err != nil {
			res.Problems = append(res.Problems, Problem{TrackID: trackID, Reason: err.Error()})
			continue
		}
		if len(variants) == 0 {
			res.Problems = append(res.Problems, Problem{TrackID: trackID, Reason: "no audio files"})
			continue
		}

		captions, err := findCaptions(captionFS, trackID, opts)
		if err != nil {
			res.Problems = append(res.Problems, Problem{TrackID: trackID, Reason: err.Error()})
			continue
		}
		if len(captions) == 0 {
			res.Problems = append(res.Problems, Problem{TrackID: trackID, Reason: "no caption files"})
			continue
		}

		res.Tracks = append(res.Tracks, Track{ID: trackID, Variants: variants, Captions: captions})
	}
	return res, nil
}

func findVariants(fsys fs.FS, trackID, ext string) ([]Variant, error) {
	entries, err := fs.ReadDir(fsys, trackID)
	if err != nil {
		return nil, fmt.Errorf("read audio directory: %w", err)
	}

	var out []Variant
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(path.Ext(name), ext) {
			continue
		}
		variant := strings.TrimSuffix(name, path.Ext(name))
		if variant == "" {
			continue
		}
		out = append(out, Variant{Name: variant, Path: path.Join(trackID, name)})
	}
	return out, nil
}

func findCaptions(fsys fs.FS, trackID string, opts Options) ([]Caption, error) {
	entries, err := fs.ReadDir(fsys, trackID)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read caption directory: %w", err)
	}

	var all, preferred []Caption
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !hasSuffixFold(name, opts.CaptionExt) {
			continue
		}
		c := Caption{
			Base: name[:len(name)-len(opts.CaptionExt)],
			Path: path.Join(trackID, name),
		}
		all = append(all, c)
		if opts.PreferredCaptionSuffix != "" && hasSuffixFold(name, opts.PreferredCaptionSuffix) {
			preferred = append(preferred, c)
		}
	}

	// fs.ReadDir sorts by name, so the first preferred file is deterministic.
	if len(preferred) > 0 {
		return preferred[:1], nil
	}
	return slices.Clip(all), nil
}

// hasSuffixFold is strings.HasSuffix ignoring ASCII case, matching how audio
// extensions are compared.
func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}
