package ffmpeg

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"runtime"
	"testing"

	"github.com/flanksource/transmute/api"
	"github.com/flanksource/transmute/engine"
	"github.com/flanksource/transmute/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, "6.1.1", parseVersion("ffmpeg version 6.1.1 Copyright (c) 2000-2023\nbuilt with gcc"))
	assert.Equal(t, "n7.0", parseVersion("ffmpeg version n7.0"))
	assert.Equal(t, "unknown", parseVersion(""))
}

func TestLoaderMissingBinary(t *testing.T) {
	_, err := Loader(WithBinary("transmute-no-such-ffmpeg"))(context.Background())
	assert.Error(t, err)
}

func TestLoaderVersionCheckFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	script := t.TempDir() + "/broken-ffmpeg"
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'cannot load libavcodec' >&2\nexit 1\n"), 0o755))

	_, err := Loader(WithBinary(script))(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version check")
}

func TestExtraArgsPrecedeCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	script := t.TempDir() + "/recording-ffmpeg"
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
if [ "$2" = "-version" ]; then echo "ffmpeg version 9.9-test"; exit 0; fi
echo "$@" > argv.txt
`), 0o755))

	eng, err := Loader(WithBinary(script), WithTempDir(t.TempDir()), WithArgs("-threads", "1"))(context.Background())
	require.NoError(t, err)
	e := eng.(*Engine)
	t.Cleanup(func() { _ = e.Terminate(context.Background()) })
	assert.Equal(t, "9.9-test", e.Version())

	require.NoError(t, e.Execute(context.Background(), engine.Args("in.png", "out.gif")))
	argv, err := e.ReadFile(context.Background(), "argv.txt")
	require.NoError(t, err)
	assert.Equal(t, "-hide_banner -loglevel error -y -threads 1 -i in.png out.gif\n", string(argv))
}

func TestStorageRejectsPaths(t *testing.T) {
	e := &Engine{dir: t.TempDir()}
	ctx := context.Background()
	assert.Error(t, e.WriteFile(ctx, "../x.png", nil))
	assert.Error(t, e.WriteFile(ctx, `..\x.png`, nil))
	assert.Error(t, e.Execute(ctx, []string{"-i", "/etc/passwd", "out.png"}))

	require.NoError(t, e.WriteFile(ctx, "a.png", []byte("x")))
	data, err := e.ReadFile(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
	require.NoError(t, e.RemoveFile(ctx, "a.png"))
	assert.True(t, os.IsNotExist(e.RemoveFile(ctx, "a.png")))
}

func TestTerminateRemovesStorage(t *testing.T) {
	dir, err := os.MkdirTemp(t.TempDir(), "storage-")
	require.NoError(t, err)
	e := &Engine{dir: dir}
	require.NoError(t, e.WriteFile(context.Background(), "left-over.png", []byte("x")))

	require.NoError(t, e.Terminate(context.Background()))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestConvertWithFFmpeg(t *testing.T) {
	requireFFmpeg(t)
	ctx := context.Background()

	var eng *Engine
	m := engine.NewManager(func(ctx context.Context) (engine.Engine, error) {
		e, err := Loader(WithTempDir(t.TempDir()))(ctx)
		if err == nil {
			eng = e.(*Engine)
		}
		return e, err
	}, engine.WithName("ffmpeg"))

	h, err := m.EnsureReady(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "unknown", eng.Version())

	out, err := engine.Invoke(ctx, h, pngBytes(t), "png", "bmp")
	require.NoError(t, err)
	assert.Equal(t, "BM", string(out[:2]))

	_, err = engine.Invoke(ctx, h, []byte("garbage"), "png", "jpeg")
	require.ErrorIs(t, err, api.ErrConversionFailed)

	entries, err := os.ReadDir(eng.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, m.Shutdown(ctx))
	_, err = os.Stat(eng.Dir())
	assert.True(t, os.IsNotExist(err))
}
