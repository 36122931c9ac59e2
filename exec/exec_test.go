package exec

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRunCapturesOutput(t *testing.T) {
	skipOnWindows(t)
	p := Command("sh", "-c", "echo out; echo err >&2")
	require.NoError(t, p.Run(context.Background()))
	assert.True(t, p.IsOK())
	assert.Equal(t, "out\n", p.Stdout.String())
	assert.Equal(t, "err\n", p.Stderr.String())
	assert.Equal(t, "err\nout\n", p.Out())
	assert.NotNil(t, p.Started)
}

func TestRunExitError(t *testing.T) {
	skipOnWindows(t)
	p := Command("sh", "-c", "echo 'Invalid data found' >&2; exit 3")
	err := p.Run(context.Background())

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "Invalid data found", exitErr.Diagnostic())
	assert.False(t, p.IsOK())
}

func TestRunHonoursCwdAndEnv(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	p := Command("sh", "-c", "pwd; echo $CODEC").
		WithCwd(dir).
		WithEnv(map[string]string{"CODEC": "png"})
	require.NoError(t, p.Run(context.Background()))
	assert.Contains(t, p.Stdout.String(), "png")
}

func TestRunContextCancel(t *testing.T) {
	skipOnWindows(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := Command("sleep", "5").Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunMissingBinary(t *testing.T) {
	err := Command("transmute-no-such-binary").Run(context.Background())
	require.Error(t, err)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}
