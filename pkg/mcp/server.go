// Package mcp exposes the Figma extraction and asset download
// operations as MCP tools over JSON-RPC 2.0 on newline-delimited
// stdio. Stdout is the protocol channel; all logging goes to stderr.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/Weavy-AI/figma-mcp-server/pkg/figma"
	"github.com/Weavy-AI/figma-mcp-server/pkg/imager"
)

// Config wires the server's collaborators and per-process defaults.
type Config struct {
	// Client is the shared Figma API client, constructed once at
	// startup. Required.
	Client *figma.Client

	// Logger receives request-level diagnostics on stderr. Nil falls
	// back to slog.Default.
	Logger *slog.Logger

	// Version is reported in the initialize handshake.
	Version string

	// DownloadConcurrency bounds simultaneous asset downloads.
	// Defaults to imager.DefaultConcurrency.
	DownloadConcurrency int

	// PNGScale is the default raster export scale when a tools/call
	// does not request one. Defaults to imager.DefaultPNGScale.
	PNGScale float64
}

// Server is an MCP server exposing two tools: get_figma_data (design
// extraction) and download_figma_images (asset retrieval). It holds no
// per-call state beyond the initialization flag; the Figma client is
// immutable and shared across calls.
type Server struct {
	client      *figma.Client
	logger      *slog.Logger
	version     string
	concurrency int
	pngScale    float64

	tools       []tool
	toolsByName map[string]*tool
	initialized bool
}

// tool binds a tool description to its handler. Handlers return the
// text payload for the content block, or a categorized error.
type tool struct {
	name        string
	description string
	annotations *toolAnnotations
	inputSchema map[string]any
	handler     func(ctx context.Context, arguments json.RawMessage) (string, error)
}

// NewServer creates the MCP server around a shared Figma client.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DownloadConcurrency <= 0 {
		cfg.DownloadConcurrency = imager.DefaultConcurrency
	}
	if cfg.PNGScale <= 0 {
		cfg.PNGScale = imager.DefaultPNGScale
	}

	s := &Server{
		client:      cfg.Client,
		logger:      logger,
		version:     cfg.Version,
		concurrency: cfg.DownloadConcurrency,
		pngScale:    cfg.PNGScale,
	}
	s.tools = []tool{s.getFigmaDataTool(), s.downloadFigmaImagesTool()}

	s.toolsByName = make(map[string]*tool, len(s.tools))
	for i := range s.tools {
		s.toolsByName[s.tools[i].name] = &s.tools[i]
	}

	return s
}

// Run processes JSON-RPC 2.0 requests from input and writes responses
// to output. Each message occupies a single line (newline-delimited
// JSON-RPC, not Content-Length framed). ctx cancellation propagates to
// in-flight tool calls so upstream fetches and file writes stop.
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	// Tool results carrying a full design tree can be large.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	encoder := json.NewEncoder(output)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if writeErr := writeError(encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); writeErr != nil {
				return writeErr
			}
			continue
		}

		if req.JSONRPC != "2.0" {
			if !req.isNotification() {
				if writeErr := writeError(encoder, req.ID, codeInvalidRequest, "unsupported JSON-RPC version"); writeErr != nil {
					return writeErr
				}
			}
			continue
		}

		// Notifications receive no response.
		if req.isNotification() {
			continue
		}

		if err := s.dispatch(ctx, encoder, &req); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// dispatch routes a JSON-RPC request to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, encoder *json.Encoder, req *request) error {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(encoder, req)
	case "ping":
		return writeResult(encoder, req.ID, map[string]any{})
	case "tools/list":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsList(encoder, req)
	case "tools/call":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsCall(ctx, encoder, req)
	default:
		return writeError(encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for initialize")
	}

	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}

	s.logger.Debug("client initialized",
		"client", params.ClientInfo.Name,
		"clientVersion", params.ClientInfo.Version,
		"requestedProtocol", params.ProtocolVersion)
	s.initialized = true

	return writeResult(encoder, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: serverCapabilities{
			Tools: &toolCapability{},
		},
		ServerInfo: serverInfo{
			Name:    "figma-mcp-server",
			Version: s.version,
		},
	})
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	descriptions := make([]toolDescription, 0, len(s.tools))
	for _, t := range s.tools {
		descriptions = append(descriptions, toolDescription{
			Name:        t.name,
			Description: t.description,
			InputSchema: t.inputSchema,
			Annotations: t.annotations,
		})
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(ctx context.Context, encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for tools/call")
	}

	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	t, ok := s.toolsByName[params.Name]
	if !ok {
		return writeError(encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	output, runErr := t.handler(ctx, params.Arguments)
	if runErr != nil {
		s.logger.Warn("tool call failed", "tool", t.name, "error", runErr)
	}

	return writeResult(encoder, req.ID, buildToolResult(output, runErr))
}

// buildToolResult assembles a toolsCallResult from the handler's text
// output and an optional failure. Internal errors never propagate past
// this point as protocol faults: every failure becomes a structured
// error payload in the response.
func buildToolResult(output string, runErr error) toolsCallResult {
	result := toolsCallResult{}
	if output != "" {
		result.Content = append(result.Content, contentBlock{
			Type: "text",
			Text: output,
		})
	}
	if runErr != nil {
		result.IsError = true
		result.Content = append(result.Content, contentBlock{
			Type: "text",
			Text: runErr.Error(),
		})
		result.ErrorInfo = classifyError(runErr)
	}
	// MCP requires at least one content block in the result.
	if len(result.Content) == 0 {
		result.Content = []contentBlock{{Type: "text", Text: ""}}
	}
	return result
}

// classifyError extracts structured error metadata from an error. It
// checks for a categorized ToolError first, then falls back to known
// library error types.
func classifyError(err error) *errorInfo {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return &errorInfo{
			Category:  string(toolErr.Category),
			Retryable: toolErr.Category == CategoryTransient,
		}
	}

	switch {
	case figma.IsNotFound(err):
		return &errorInfo{Category: string(CategoryNotFound)}
	case figma.IsAuth(err):
		return &errorInfo{Category: string(CategoryForbidden)}
	case figma.IsRetryable(err):
		return &errorInfo{Category: string(CategoryTransient), Retryable: true}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return &errorInfo{Category: string(CategoryTransient), Retryable: true}
	default:
		return &errorInfo{Category: string(CategoryInternal)}
	}
}

// writeResult sends a JSON-RPC 2.0 success response.
func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// writeError sends a JSON-RPC 2.0 error response.
func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	})
}
