package figmamcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/Weavy-AI/figma-mcp-server/pkg/figma"
	"github.com/Weavy-AI/figma-mcp-server/pkg/mcp"
)

// Version is the server version reported in the MCP handshake and by
// the version subcommand.
const Version = "0.3.0"

// Options configures a server session.
type Options struct {
	// AccessToken is the Figma personal access token. Required.
	AccessToken string

	// Logger receives diagnostics; it must write to stderr (or
	// elsewhere off stdout) because stdout carries the protocol.
	// Nil means slog.Default.
	Logger *slog.Logger

	// DownloadConcurrency bounds simultaneous asset downloads.
	// Zero selects the default.
	DownloadConcurrency int

	// PNGScale is the default raster export scale. Zero selects the
	// default.
	PNGScale float64
}

// Serve runs an MCP session over the given streams until input reaches
// EOF or ctx is canceled. The Figma client is constructed exactly once
// here and shared by every tool call in the session; cancellation of
// ctx propagates to in-flight upstream fetches and asset writes.
func Serve(ctx context.Context, opts Options, input io.Reader, output io.Writer) error {
	if strings.TrimSpace(opts.AccessToken) == "" {
		return errors.New("figma access token is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := figma.NewClient(opts.AccessToken, figma.WithLogger(logger))

	server := mcp.NewServer(mcp.Config{
		Client:              client,
		Logger:              logger,
		Version:             Version,
		DownloadConcurrency: opts.DownloadConcurrency,
		PNGScale:            opts.PNGScale,
	})

	return server.Run(ctx, input, output)
}
