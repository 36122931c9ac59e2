package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/transmute"
	"github.com/flanksource/transmute/api"
	"github.com/flanksource/transmute/batch"
	"github.com/flanksource/transmute/server"
	"github.com/flanksource/transmute/shutdown"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Build information (set by goreleaser)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "transmute",
		Short: "Convert images and documents between formats",
		Long: `Transmute converts raster and vector images between formats using an
embedded codec engine, and assembles documents (txt, docx, pdf) with a
deterministic text pagination engine.

Run it once over a set of files with 'convert', or expose the same
conversions over HTTP with 'serve'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := transmute.Flags.LoadConfig(configFile, cmd.Flags()); err != nil {
					return err
				}
			}
			transmute.Flags.UseFlags()
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	transmute.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newConvertCommand())
	rootCmd.AddCommand(newFormatsCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

func newConvertCommand() *cobra.Command {
	var to, outputDir string

	cmd := &cobra.Command{
		Use:   "convert --to <format> [flags] <file1> [file2...]",
		Short: "Convert files to another format",
		Example: `  transmute convert --to jpeg photo.png diagram.svg
  transmute convert --to pdf --output out/ notes.txt report.docx
  transmute convert --to webp -j 8 --engine ffmpeg *.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, ok := api.ParseFormat(to)
			if !ok {
				return fmt.Errorf("unknown target format %q", to)
			}
			if outputDir != "" {
				if err := os.MkdirAll(outputDir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			outputs, err := planOutputs(args, outputDir, target)
			if err != nil {
				return err
			}

			conv, err := transmute.Flags.NewConverter()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			reg := shutdown.NewRegistry()
			reg.AddHookWithPriority("cancel pending conversions", shutdown.PriorityWorkers, func(context.Context) error {
				cancel()
				return nil
			})
			reg.AddHookWithPriority("conversion engine", shutdown.PriorityEngine, conv.Close)
			stopped := make(chan struct{})
			go func() {
				defer close(stopped)
				reg.WaitForSignal(ctx)
			}()

			written := make(map[string]string, len(args))
			var mu sync.Mutex
			group := batch.Run(ctx, args, transmute.Flags.Concurrency, func(ctx context.Context, path string) (*api.Result, error) {
				res, err := conv.ConvertFile(ctx, path, target)
				if err != nil {
					return nil, err
				}
				out := outputs[path]
				if err := res.WriteToFile(out, 0o644); err != nil {
					return nil, fmt.Errorf("failed to write %s: %w", out, err)
				}
				mu.Lock()
				written[path] = out
				mu.Unlock()
				return res, nil
			})
			cancel()
			<-stopped

			s := newStyles(cmd.OutOrStdout(), transmute.Flags.NoColor)
			for _, item := range group.Items {
				printItem(cmd.OutOrStdout(), s, item, written[item.Name])
			}
			printSummary(cmd.OutOrStdout(), s, group)
			if group.Status() != batch.StatusSuccess {
				return fmt.Errorf("%d of %d conversions did not complete", len(group.Items)-group.Count(batch.StatusSuccess), len(group.Items))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&to, "to", "t", "", "Target format, e.g. jpeg, webp, pdf (required)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: next to each input)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newFormatsCommand() *cobra.Command {
	var all, asYAML bool

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List accepted formats and document routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := transmute.Formats(all)
			if asYAML {
				data, err := yaml.Marshal(catalog)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			printCatalog(cmd.OutOrStdout(), newStyles(cmd.OutOrStdout(), transmute.Flags.NoColor), catalog)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include unsupported document routes")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print as YAML")
	return cmd
}

func newServeCommand() *cobra.Command {
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Long: `Start an HTTP server exposing:

  POST /convert   multipart form with "file" and "targetFormat"
  GET  /formats   accepted formats and document routes
  GET  /health    liveness and engine state`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := transmute.Flags.NewConverter()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			served := make(chan error, 1)
			go func() {
				served <- server.New(conv).ListenAndServe(ctx, transmute.Flags.Addr, grace)
			}()
			var once sync.Once
			var serveErr error
			wait := func() error {
				once.Do(func() { serveErr = <-served })
				return serveErr
			}

			reg := shutdown.NewRegistry()
			reg.AddHookWithPriority("http server", shutdown.PriorityIngress, func(context.Context) error {
				cancel()
				return wait()
			})
			reg.AddHookWithPriority("conversion engine", shutdown.PriorityEngine, conv.Close)
			stopped := make(chan struct{})
			go func() {
				defer close(stopped)
				reg.WaitForSignal(ctx)
			}()

			err = wait()
			cancel()
			<-stopped
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			logger.Infof("Server stopped")
			return nil
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", 10*time.Second, "Time to drain in-flight requests on shutdown")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), getVersionInfo())
		},
	}
}

func getVersionInfo() string {
	return fmt.Sprintf("transmute %s (commit: %s, built: %s, go: %s)",
		version, commit, date, runtime.Version())
}
