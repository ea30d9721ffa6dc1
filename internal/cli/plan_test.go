package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCaption(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.en.vtt")
	require.NoError(t, os.WriteFile(path, []byte(exampleCaptions), 0o644))
	return path
}

func TestPlanCmd(t *testing.T) {
	path := writeCaption(t)
	te := newTestEnv(t, nil, &fakeSlicer{})

	require.NoError(t, execute(context.Background(), PlanCmd(te.env), path, "--target", "5s"))

	out := te.stdout.String()
	assert.Contains(t, out, "3 cues, 1 dropped")
	assert.Contains(t, out, "target 5s (ceiling 7.5s): 2 chunks")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Regexp(t, `^0\s+00:00:00\.000\s+00:00:04\.000\s+4s\s+2$`, lines[len(lines)-2])
	assert.Regexp(t, `^1\s+00:00:09\.000\s+00:00:11\.000\s+2s\s+1$`, lines[len(lines)-1])

	assert.Contains(t, te.stderr.String(), "warning: "+path)
}

func TestPlanCmd_MultipleTargets(t *testing.T) {
	path := writeCaption(t)
	te := newTestEnv(t, nil, &fakeSlicer{})

	require.NoError(t, execute(context.Background(), PlanCmd(te.env), path, "-t", "5s", "-t", "30s"))

	out := te.stdout.String()
	assert.Contains(t, out, "target 5s (ceiling 7.5s): 2 chunks")
	assert.Contains(t, out, "target 30s (ceiling 45s): 1 chunks")
}

func TestPlanCmd_DefaultTarget(t *testing.T) {
	te := newTestEnv(t, nil, &fakeSlicer{})

	require.NoError(t, execute(context.Background(), PlanCmd(te.env), writeCaption(t)))

	assert.Contains(t, te.stdout.String(), "target 8s (ceiling 12s)")
}

func TestPlanCmd_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		te := newTestEnv(t, nil, &fakeSlicer{})
		err := execute(context.Background(), PlanCmd(te.env), filepath.Join(t.TempDir(), "nope.vtt"))
		require.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("target below one second", func(t *testing.T) {
		te := newTestEnv(t, nil, &fakeSlicer{})
		err := execute(context.Background(), PlanCmd(te.env), writeCaption(t), "-t", "500ms")
		require.ErrorIs(t, err, ErrInvalidTarget)
	})

	t.Run("missing argument", func(t *testing.T) {
		te := newTestEnv(t, nil, &fakeSlicer{})
		err := execute(context.Background(), PlanCmd(te.env))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "accepts 1 arg(s)")
	})
}
