package transmute

import (
	"fmt"
	"os"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/transmute/document"
	"github.com/flanksource/transmute/engine"
	"github.com/flanksource/transmute/engine/ffmpeg"
	"github.com/flanksource/transmute/engine/native"
	"github.com/flanksource/transmute/layout"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type AllFlags struct {
	ConvertOptions `yaml:",inline"`
	ServerOptions  `yaml:"server"`
	logger.Flags   `yaml:"log"`
}

type ConvertOptions struct {
	MaxSize     int64         `yaml:"maxSize"`
	Engine      string        `yaml:"engine"` // native or ffmpeg
	FFmpeg      string        `yaml:"ffmpeg"` // ffmpeg binary
	FFmpegArgs  []string      `yaml:"ffmpegArgs"`
	JPEGQuality int           `yaml:"jpegQuality"`
	Renderer    string        `yaml:"renderer"`
	Concurrency int           `yaml:"concurrency"`
	Layout      layout.Config `yaml:"layout"`
	NoColor     bool          `yaml:"noColor"`
}

type ServerOptions struct {
	Addr string `yaml:"addr"`
}

var Flags AllFlags = AllFlags{
	ConvertOptions: ConvertOptions{
		MaxSize:     DefaultMaxSize,
		Engine:      "native",
		FFmpeg:      "ffmpeg",
		JPEGQuality: 90,
		Renderer:    string(document.RendererPositioned),
		Concurrency: 4,
		Layout:      layout.DefaultConfig(),
	},
	ServerOptions: ServerOptions{
		Addr: ":8080",
	},
	Flags: logger.Flags{
		Level:        "info",
		LevelCount:   0,
		JsonLogs:     false,
		ReportCaller: false,
		LogToStderr:  true,
	},
}

// BindFlags adds every option to flags, bound to the global Flags.
func BindFlags(flags *pflag.FlagSet) *AllFlags {
	flags.CountVarP(&Flags.Flags.LevelCount, "loglevel", "v", "Increase logging level")
	flags.StringVar(&Flags.Flags.Level, "log-level", Flags.Flags.Level, "Set the default log level")
	flags.BoolVar(&Flags.Flags.JsonLogs, "json-logs", false, "Print logs in json format to stderr")
	flags.BoolVar(&Flags.Flags.ReportCaller, "report-caller", false, "Report log caller info")
	flags.BoolVar(&Flags.Flags.LogToStderr, "log-to-stderr", true, "Log to stderr instead of stdout")

	flags.Int64Var(&Flags.MaxSize, "max-size", Flags.MaxSize, "Maximum input size in bytes (0 = unlimited)")
	flags.StringVar(&Flags.Engine, "engine", Flags.Engine, "Image codec engine: native or ffmpeg")
	flags.StringVar(&Flags.FFmpeg, "ffmpeg", Flags.FFmpeg, "Path to the ffmpeg binary for --engine=ffmpeg")
	flags.StringArrayVar(&Flags.FFmpegArgs, "ffmpeg-arg", Flags.FFmpegArgs, "Extra ffmpeg argument placed before every command (repeatable)")
	flags.IntVar(&Flags.JPEGQuality, "jpeg-quality", Flags.JPEGQuality, "JPEG quality (1-100) for the native engine")
	flags.StringVar(&Flags.Renderer, "renderer", Flags.Renderer, "PDF renderer: positioned or flow")
	flags.IntVarP(&Flags.Concurrency, "concurrency", "j", Flags.Concurrency, "Files converted in parallel")
	flags.BoolVar(&Flags.NoColor, "no-color", false, "Disable colored output")

	flags.Float64Var(&Flags.Layout.FontSize, "font-size", Flags.Layout.FontSize, "PDF font size in points")
	flags.Float64Var(&Flags.Layout.LineHeight, "line-height", Flags.Layout.LineHeight, "PDF line height as a multiple of the font size")
	flags.IntVar(&Flags.Layout.CharsPerLine, "chars-per-line", Flags.Layout.CharsPerLine, "Characters per PDF line")
	flags.Float64Var(&Flags.Layout.MarginX, "margin-x", Flags.Layout.MarginX, "PDF horizontal margin in points")
	flags.Float64Var(&Flags.Layout.MarginY, "margin-y", Flags.Layout.MarginY, "PDF vertical margin in points")

	flags.StringVar(&Flags.Addr, "addr", Flags.Addr, "Listen address for serve")
	return &Flags
}

func (a AllFlags) String() string {
	data, err := yaml.Marshal(a)
	if err != nil {
		return err.Error()
	}
	return string(data)
}

// LoadConfig applies a YAML config file to a. Flags already set on the
// command line keep their command line value.
func (a *AllFlags) LoadConfig(path string, flags *pflag.FlagSet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	changed := map[string]string{}
	if flags != nil {
		flags.Visit(func(f *pflag.Flag) {
			changed[f.Name] = f.Value.String()
		})
	}
	if err := yaml.Unmarshal(data, a); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	for name, value := range changed {
		if err := flags.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

func (a AllFlags) UseFlags() {
	logger.Configure(a.Flags)
	logger.Debugf("Using flags: %s", a)
}

// Loader returns the engine loader selected by Engine.
func (a AllFlags) Loader() (engine.Loader, error) {
	switch a.Engine {
	case "", "native":
		return native.Loader(native.WithJPEGQuality(a.JPEGQuality)), nil
	case "ffmpeg":
		return ffmpeg.Loader(ffmpeg.WithBinary(a.FFmpeg), ffmpeg.WithArgs(a.FFmpegArgs...)), nil
	}
	return nil, fmt.Errorf("unknown engine %q, expected native or ffmpeg", a.Engine)
}

// NewConverter builds a Converter from the options.
func (a AllFlags) NewConverter() (*Converter, error) {
	renderer, err := document.ParseRenderer(a.Renderer)
	if err != nil {
		return nil, err
	}
	assembler, err := document.NewAssembler(
		document.WithLayout(a.Layout),
		document.WithRenderer(renderer),
		document.WithCreator("transmute"),
	)
	if err != nil {
		return nil, err
	}
	load, err := a.Loader()
	if err != nil {
		return nil, err
	}
	name := a.Engine
	if name == "" {
		name = "native"
	}
	return New(
		WithMaxSize(a.MaxSize),
		WithEngine(engine.NewManager(load, engine.WithName(name))),
		WithAssembler(assembler),
	), nil
}
