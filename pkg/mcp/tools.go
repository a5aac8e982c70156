package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Weavy-AI/figma-mcp-server/pkg/figma"
	"github.com/Weavy-AI/figma-mcp-server/pkg/formatter"
	"github.com/Weavy-AI/figma-mcp-server/pkg/imager"
	"github.com/Weavy-AI/figma-mcp-server/pkg/simplify"
)

// getFigmaDataTool extracts a simplified design representation from a
// Figma file and returns it as compact YAML.
func (s *Server) getFigmaDataTool() tool {
	return tool{
		name: "get_figma_data",
		description: "Fetch layout and styling information from a Figma file as compact YAML. " +
			"Provide a nodeId to scope the extraction to one node, and a depth to limit " +
			"how many levels of the tree are returned.",
		annotations: &toolAnnotations{
			ReadOnlyHint:    boolPtr(true),
			DestructiveHint: boolPtr(false),
			IdempotentHint:  boolPtr(true),
		},
		inputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"fileKey": map[string]any{
					"type":        "string",
					"description": "The Figma file key, or a full figma.com file/design URL.",
				},
				"nodeId": map[string]any{
					"type":        "string",
					"description": "Optional node ID to scope the extraction to, e.g. 1:2 or 1-2.",
				},
				"depth": map[string]any{
					"type":        "integer",
					"description": "Optional positive traversal depth limit below each root.",
				},
			},
			"required": []string{"fileKey"},
		},
		handler: s.handleGetFigmaData,
	}
}

func (s *Server) handleGetFigmaData(ctx context.Context, arguments json.RawMessage) (string, error) {
	var params struct {
		FileKey string `json:"fileKey"`
		NodeID  string `json:"nodeId"`
		Depth   int    `json:"depth"`
	}
	if err := unmarshalArguments(arguments, &params); err != nil {
		return "", err
	}

	if strings.TrimSpace(params.FileKey) == "" {
		return "", Validation("fileKey is required")
	}
	if params.Depth < 0 {
		return "", Validation("depth must be a positive integer, got %d", params.Depth)
	}

	fileKey, err := figma.ParseFileKey(params.FileKey)
	if err != nil {
		return "", Validation("invalid fileKey: %w", err)
	}

	// A figma.com URL often carries the target node in its node-id
	// query parameter; use it when the caller gave no explicit nodeId.
	nodeID := figma.NormalizeNodeID(params.NodeID)
	if nodeID == "" {
		nodeID = figma.ExtractNodeID(params.FileKey)
	}

	var roots []figma.Node
	var meta simplify.Metadata

	if nodeID != "" {
		resp, err := s.client.GetNodes(ctx, fileKey, []string{nodeID}, params.Depth)
		if err != nil {
			return "", upstream(err)
		}
		data := resp.Nodes[nodeID]
		if data == nil {
			return "", NotFound("node %s not found in file %s", nodeID, fileKey)
		}
		roots = []figma.Node{data.Document}
		meta = simplify.Metadata{
			Name:         resp.Name,
			LastModified: resp.LastModified,
			ThumbnailURL: resp.ThumbnailURL,
			NodeID:       nodeID,
			Depth:        params.Depth,
		}
	} else {
		// The files endpoint counts depth from the document level, one
		// above the page roots returned here, so fetch one extra level
		// to line up with the local bound (page = level 0).
		fetchDepth := params.Depth
		if fetchDepth > 0 {
			fetchDepth++
		}
		file, err := s.client.GetFile(ctx, fileKey, fetchDepth)
		if err != nil {
			return "", upstream(err)
		}
		roots = file.Document.Children
		meta = simplify.Metadata{
			Name:         file.Name,
			LastModified: file.LastModified,
			ThumbnailURL: file.ThumbnailURL,
			Depth:        params.Depth,
		}
	}

	design, err := simplify.Simplify(roots, meta, simplify.Options{Depth: params.Depth})
	if err != nil {
		return "", Internal("simplify design: %w", err)
	}

	text, err := formatter.Design(design)
	if err != nil {
		return "", Internal("%w", err)
	}

	s.logger.Debug("design extracted",
		"fileKey", fileKey, "nodeId", nodeID, "depth", params.Depth,
		"roots", len(design.Nodes), "globalVars", len(design.GlobalVars.Styles))
	return text, nil
}

// downloadFigmaImagesTool retrieves image assets (embedded fills and
// rendered exports) into a local directory.
func (s *Server) downloadFigmaImagesTool() tool {
	return tool{
		name: "download_figma_images",
		description: "Download image assets from a Figma file into a local directory. " +
			"Nodes with an imageRef fetch the embedded bitmap behind an image fill; " +
			"nodes without one are rendered on demand — SVG when the file name ends " +
			"in .svg, PNG otherwise.",
		annotations: &toolAnnotations{
			ReadOnlyHint:    boolPtr(false),
			DestructiveHint: boolPtr(false),
			IdempotentHint:  boolPtr(true),
		},
		inputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"fileKey": map[string]any{
					"type":        "string",
					"description": "The Figma file key, or a full figma.com file/design URL.",
				},
				"nodes": map[string]any{
					"type":        "array",
					"description": "The assets to download.",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"nodeId": map[string]any{
								"type":        "string",
								"description": "The ID of the node to fetch.",
							},
							"imageRef": map[string]any{
								"type":        "string",
								"description": "Image fill reference; set it to fetch the embedded bitmap instead of rendering the node.",
							},
							"fileName": map[string]any{
								"type":        "string",
								"description": "Target file name including extension.",
							},
						},
						"required": []string{"nodeId", "fileName"},
					},
				},
				"localPath": map[string]any{
					"type":        "string",
					"description": "Absolute directory to write the assets into; created if absent.",
				},
				"pngScale": map[string]any{
					"type":        "number",
					"description": "Export scale for PNG renders. Defaults to 2.",
				},
			},
			"required": []string{"fileKey", "nodes", "localPath"},
		},
		handler: s.handleDownloadFigmaImages,
	}
}

func (s *Server) handleDownloadFigmaImages(ctx context.Context, arguments json.RawMessage) (string, error) {
	var params struct {
		FileKey string `json:"fileKey"`
		Nodes   []struct {
			NodeID   string `json:"nodeId"`
			ImageRef string `json:"imageRef"`
			FileName string `json:"fileName"`
		} `json:"nodes"`
		LocalPath string  `json:"localPath"`
		PNGScale  float64 `json:"pngScale"`
	}
	if err := unmarshalArguments(arguments, &params); err != nil {
		return "", err
	}

	if strings.TrimSpace(params.FileKey) == "" {
		return "", Validation("fileKey is required")
	}
	if strings.TrimSpace(params.LocalPath) == "" {
		return "", Validation("localPath is required")
	}
	if params.PNGScale < 0 {
		return "", Validation("pngScale must be positive, got %g", params.PNGScale)
	}

	fileKey, err := figma.ParseFileKey(params.FileKey)
	if err != nil {
		return "", Validation("invalid fileKey: %w", err)
	}

	requests := make([]imager.Request, 0, len(params.Nodes))
	for _, node := range params.Nodes {
		requests = append(requests, imager.Request{
			NodeID:   figma.NormalizeNodeID(node.NodeID),
			ImageRef: node.ImageRef,
			FileName: node.FileName,
		})
	}

	pngScale := params.PNGScale
	if pngScale == 0 {
		pngScale = s.pngScale
	}

	result, err := imager.Download(ctx, s.client, fileKey, requests, imager.Config{
		OutputDir:   params.LocalPath,
		PNGScale:    pngScale,
		Concurrency: s.concurrency,
	})
	if err != nil {
		return "", Internal("download assets: %w", err)
	}

	report, err := formatter.DownloadReport(result)
	if err != nil {
		return "", Internal("%w", err)
	}

	s.logger.Debug("assets downloaded",
		"fileKey", fileKey, "requested", len(requests),
		"written", len(result.Written()), "allSucceeded", result.AllSucceeded())
	return report, nil
}

// unmarshalArguments decodes tool arguments, mapping malformed JSON to
// a validation error.
func unmarshalArguments(arguments json.RawMessage, into any) error {
	if len(arguments) == 0 || string(arguments) == "null" {
		return Validation("arguments are required")
	}
	if err := json.Unmarshal(arguments, into); err != nil {
		return Validation("invalid arguments: %w", err)
	}
	return nil
}

// upstream converts a Figma client failure into a categorized tool
// error: unknown identifiers are not_found, rejected tokens forbidden,
// rate limits and server trouble transient, the rest internal.
func upstream(err error) *ToolError {
	switch {
	case figma.IsNotFound(err):
		return NotFound("%w", err)
	case figma.IsAuth(err):
		return Forbidden("%w", err)
	case figma.IsRetryable(err):
		return Transient("%w", err)
	default:
		return Internal("%w", err)
	}
}

func boolPtr(value bool) *bool {
	return &value
}
