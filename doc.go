// Package figmamcp serves Figma design data to automated clients over
// the Model Context Protocol. It exposes two tools: get_figma_data,
// which reduces a Figma document tree into a compact YAML
// representation (flat metadata, a simplified node forest, and a
// deduplicated globalVars style table), and download_figma_images,
// which retrieves embedded image fills and on-demand node renders into
// a local directory with per-asset success reporting.
//
// The server binary lives in cmd/figma-mcp-server; this root package
// exposes the same session as a Go API so callers can embed it.
//
// # Import
//
// The module path contains hyphens but Go package names cannot, so the
// package is named figmamcp:
//
//	import figmamcp "github.com/Weavy-AI/figma-mcp-server" // package figmamcp
//
// # Quick start
//
//	err := figmamcp.Serve(ctx, figmamcp.Options{
//	    AccessToken: os.Getenv("FIGMA_API_KEY"),
//	}, os.Stdin, os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Transport
//
// The session speaks newline-delimited JSON-RPC 2.0 (initialize, ping,
// tools/list, tools/call) on the provided streams. Stdout is reserved
// for the protocol; pass a Logger that writes to stderr.
//
// # Scoped extraction
//
// get_figma_data accepts an optional nodeId to extract a single node
// instead of the whole document, and an optional depth to bound how
// many levels of the tree are returned. Both also parse out of a
// figma.com URL passed as the fileKey.
//
// # Asset downloads
//
// download_figma_images partitions its requests by retrieval class:
// entries with an imageRef resolve the embedded bitmap stored against
// the file, entries without one are exported on demand (SVG for .svg
// file names, PNG otherwise). The two classes run concurrently under a
// bounded download pool, and a failed asset is reported in that asset's
// outcome without aborting the rest.
package figmamcp
