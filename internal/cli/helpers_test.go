package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/maauso/caption-chunker/internal/audio"
	"github.com/maauso/caption-chunker/internal/bootstrap"
	"github.com/maauso/caption-chunker/internal/config"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a thread-safe bytes.Buffer; loggers write to it from worker goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ io.Writer = (*syncBuffer)(nil)

// fakeSlicer implements audio.Slicer without ffmpeg. Export writes a
// placeholder file unless exportErr is set.
type fakeSlicer struct {
	exportErr error

	mu       sync.Mutex
	exported []string
}

func (f *fakeSlicer) Load(_ context.Context, path string) (audio.Track, error) {
	if _, err := os.Stat(path); err != nil {
		return audio.Track{}, audio.ErrInputNotFound
	}
	return audio.Track{Path: path, Duration: time.Hour}, nil
}

func (f *fakeSlicer) Slice(track audio.Track, start, end time.Duration) (audio.Segment, error) {
	return audio.NewSegment(track, start, end)
}

func (f *fakeSlicer) Export(_ context.Context, _ audio.Segment, dst string) error {
	if f.exportErr != nil {
		return f.exportErr
	}
	f.mu.Lock()
	f.exported = append(f.exported, dst)
	f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte("audio"), 0o644)
}

var errExport = errors.New("ffmpeg export: exit status 1")

const exampleCaptions = `WEBVTT

00:00:00.000 --> 00:00:02.000 align:start
a

00:00:02.000 --> 00:00:04.000
b

00:00:09.000 --> 00:00:11.000
c

00:00:12.000 --> 00:00:xx.000
broken
`

// testEnv bundles an Env with its captured output.
type testEnv struct {
	env    *Env
	stdout *bytes.Buffer
	stderr *syncBuffer
}

// newTestEnv builds an Env whose config comes from vars and whose slicer is slicer.
func newTestEnv(t *testing.T, vars map[string]string, slicer audio.Slicer) *testEnv {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &syncBuffer{}

	env := NewEnv(
		WithStdout(stdout),
		WithStderr(stderr),
		WithConfigLoader(func() (*config.Config, error) {
			return config.LoadFrom(envconfig.MapLookuper(vars))
		}),
		WithDependencies(func(cfg *config.Config, logger *slog.Logger) (*bootstrap.Dependencies, error) {
			return bootstrap.NewDependencies(cfg, logger, bootstrap.WithSlicer(slicer))
		}),
	)
	return &testEnv{env: env, stdout: stdout, stderr: stderr}
}

// execute runs cmd with args. A nil slice would make cobra fall back to os.Args.
func execute(ctx context.Context, cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(append([]string{}, args...))
	return cmd.ExecuteContext(ctx)
}

// writeSourceTree creates <root>/vid1/{clean.mp3,vid1.vtt} and returns root.
func writeSourceTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "vid1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clean.mp3"), []byte("mp3"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vid1.vtt"), []byte(exampleCaptions), 0o644))
	return root
}
