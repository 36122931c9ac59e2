package transmute

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigKeepsCommandLine(t *testing.T) {
	saved := Flags
	t.Cleanup(func() { Flags = saved })

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--engine", "ffmpeg", "--chars-per-line", "60"}))

	path := filepath.Join(t.TempDir(), "transmute.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
maxSize: 1024
engine: native
renderer: flow
layout:
  charsPerLine: 70
  fontSize: 10
server:
  addr: ":9000"
`), 0o600))

	require.NoError(t, flags.LoadConfig(path, fs))
	assert.EqualValues(t, 1024, Flags.MaxSize)
	assert.Equal(t, "flow", Flags.Renderer)
	assert.Equal(t, ":9000", Flags.Addr)
	assert.Equal(t, 10.0, Flags.Layout.FontSize)
	// set on the command line
	assert.Equal(t, "ffmpeg", Flags.Engine)
	assert.Equal(t, 60, Flags.Layout.CharsPerLine)
}

func TestLoadConfigErrors(t *testing.T) {
	a := Flags
	assert.Error(t, a.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxSize: [1"), 0o600))
	assert.Error(t, a.LoadConfig(path, nil))
}

func TestNewConverterFromFlags(t *testing.T) {
	a := Flags
	c, err := a.NewConverter()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxSize, c.MaxSize())

	a.Engine = "gpu"
	_, err = a.NewConverter()
	assert.Error(t, err)

	a = Flags
	a.Renderer = "fancy"
	_, err = a.NewConverter()
	assert.Error(t, err)

	a = Flags
	a.Layout.FontSize = 0
	_, err = a.NewConverter()
	assert.Error(t, err)
}

func TestFlagsString(t *testing.T) {
	s := Flags.String()
	assert.Contains(t, s, "engine: native")
	assert.Contains(t, s, "charsPerLine: 90")
}

func TestFFmpegArgsFlag(t *testing.T) {
	saved := Flags
	t.Cleanup(func() { Flags = saved })

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--engine", "ffmpeg", "--ffmpeg-arg=-threads", "--ffmpeg-arg=1"}))
	assert.Equal(t, []string{"-threads", "1"}, Flags.FFmpegArgs)

	load, err := Flags.Loader()
	require.NoError(t, err)
	assert.NotNil(t, load)
	assert.Contains(t, Flags.String(), "ffmpegArgs")
}
