// Command figma-mcp-server serves Figma design data over the Model
// Context Protocol on stdio. Stdout carries the protocol; everything
// human-facing (banner, logs, errors) goes to stderr.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	figmamcp "github.com/Weavy-AI/figma-mcp-server"
	"github.com/Weavy-AI/figma-mcp-server/pkg/config"
)

var (
	accessToken string
	concurrency int
	pngScale    float64
	logLevel    = slog.LevelInfo
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "figma-mcp-server",
		Short:         "Serve Figma design data over the Model Context Protocol",
		Long:          "An MCP server that lets coding agents extract simplified layout and styling information from Figma files and download the image assets referenced in them.",
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringVarP(&accessToken, "figma-api-key", "k", "", "Figma personal access token (overrides FIGMA_API_KEY)")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum simultaneous asset downloads (overrides FIGMA_DOWNLOAD_CONCURRENCY)")
	rootCmd.Flags().Float64Var(&pngScale, "png-scale", 0, "Default PNG export scale (overrides FIGMA_PNG_SCALE)")
	rootCmd.Flags().Var(&logLevelFlag{level: &logLevel}, "log-level", "Log level: debug, info, warn, error (overrides FIGMA_MCP_LOG_LEVEL)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("figma-mcp-server version %s\n", figmamcp.Version)
		},
	}

	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if accessToken == "" {
		accessToken = cfg.AccessToken
	}
	if concurrency == 0 {
		concurrency = cfg.DownloadConcurrency
	}
	if pngScale == 0 {
		pngScale = cfg.PNGScale
	}
	if !cmd.Flags().Changed("log-level") {
		if parsed, err := parseLevel(cfg.LogLevel); err == nil {
			logLevel = parsed
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	cyan := color.New(color.FgCyan)
	cyan.Fprintf(os.Stderr, "figma-mcp-server %s\n", figmamcp.Version)
	cyan.Fprintln(os.Stderr, "Speaking MCP on stdio; logs on stderr.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return figmamcp.Serve(ctx, figmamcp.Options{
		AccessToken:         accessToken,
		Logger:              logger,
		DownloadConcurrency: concurrency,
		PNGScale:            pngScale,
	}, os.Stdin, os.Stdout)
}

// logLevelFlag is a pflag.Value that parses slog levels by name.
type logLevelFlag struct {
	level *slog.Level
}

var _ pflag.Value = (*logLevelFlag)(nil)

func (f *logLevelFlag) String() string {
	return strings.ToLower(f.level.String())
}

func (f *logLevelFlag) Set(value string) error {
	parsed, err := parseLevel(value)
	if err != nil {
		return err
	}
	*f.level = parsed
	return nil
}

func (f *logLevelFlag) Type() string {
	return "level"
}

func parseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (use debug, info, warn, or error)", value)
	}
}
