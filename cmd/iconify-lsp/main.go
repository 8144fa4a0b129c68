// Package main provides the iconify-lsp binary, a language server offering
// completion, hover previews and inline decorations for i-[set/name] icon
// references.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/akhenakh/iconify-lsp/config"
	"github.com/akhenakh/iconify-lsp/icon"
	"github.com/akhenakh/iconify-lsp/langserver"
	"github.com/akhenakh/iconify-lsp/metrics"
	"github.com/akhenakh/iconify-lsp/server"
)

const appName = "iconify-lsp"

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts, envErr := config.LoadOptions()

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Language server for i-[set/name] icon references",
		Long: `iconify-lsp speaks the Language Server Protocol over stdio.

It indexes the Iconify JSON and SVG files of each workspace folder and offers:
- completion of i-[set/name] references with a preview
- hover previews of referenced icons
- inline icon decorations (iconify/publishDecorations)`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", opts.MetricsAddr, "Address of the /metrics listener, disabled when empty")
	flags.DurationVar(&opts.DecorationInterval, "decoration-interval", opts.DecorationInterval, "Minimum time between two decoration passes of a document")
	flags.BoolVar(&opts.Watch, "watch", opts.Watch, "Watch icon directories for created files")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	cmd.AddCommand(listCmd())

	return cmd
}

func serve(ctx context.Context, opts config.Options) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: opts.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if opts.MetricsAddr != "" {
		m = metrics.New()
		go func() {
			if err := m.Serve(ctx, opts.MetricsAddr, logger); err != nil {
				logger.Error("metrics listener stopped", "error", err)
			}
		}()
	}

	b := langserver.New(
		langserver.WithLogger(logger),
		langserver.WithMetrics(m),
		langserver.WithDecorationInterval(opts.DecorationInterval),
		langserver.WithFileWatcher(opts.Watch),
	)

	exitCode := -1
	srv := server.NewServer(
		server.WithLogger(logger),
		server.WithServerInfo(appName, Version),
		server.WithCompletionTriggers("-", "["),
		server.WithCommands(langserver.CommandReindex),
		server.WithFileCreateGlobs("**/*.{json,svg}"),
		server.WithInitializeHook(b.Initialize),
		server.WithExitFunc(func(code int) { exitCode = code }),
	)
	if err := b.Bind(srv); err != nil {
		b.Close()
		return err
	}

	logger.Info("starting", "version", Version, "watch", opts.Watch, "decoration_interval", opts.DecorationInterval)
	err := srv.Run(ctx)
	b.Close()
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if exitCode > 0 {
		os.Exit(exitCode)
	}
	return nil
}

func listCmd() *cobra.Command {
	var iconDir string
	cmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "List the icons indexed for a workspace folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return listIcons(cmd.OutOrStdout(), root, iconDir)
		},
	}
	cmd.Flags().StringVar(&iconDir, "icon-dir", "", "Icon directory, relative to dir (default from the workspace config file)")
	return cmd
}

func listIcons(w io.Writer, root, iconDir string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", root, err)
	}
	settings, _, err := config.LoadWorkspaceFile(root)
	if err != nil {
		return err
	}
	if iconDir != "" {
		settings.IconDir = iconDir
	}

	idx := icon.NewIndex(icon.Layout{
		Root:      root,
		IconDir:   settings.EffectiveIconDir(),
		CustomSVG: settings.CustomSVG,
	}, icon.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range idx.Names() {
		path, _ := idx.Lookup(name)
		if rel, err := filepath.Rel(root, path); err == nil {
			path = rel
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, path)
	}
	return tw.Flush()
}
