// Package imager retrieves image assets referenced by a Figma document.
// Requests split into two retrieval classes: fills (embedded bitmaps
// resolved through the file images API, no rendering involved) and
// renders (exports rasterized or vectorized on demand by Figma). The
// two classes are fetched as concurrent batches sharing one bounded
// download semaphore, and every request produces exactly one outcome;
// a single failed asset never aborts the rest.
package imager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Weavy-AI/figma-mcp-server/pkg/figma"
)

const maxNodesPerRequest = 100

// DefaultConcurrency caps simultaneous asset downloads when the caller
// does not configure a bound.
const DefaultConcurrency = 5

// DefaultPNGScale is the raster export scale applied when the caller
// does not request one.
const DefaultPNGScale = 2

// Request describes one asset to retrieve. A non-empty ImageRef selects
// the fill class (the embedded bitmap behind an IMAGE paint); an empty
// ImageRef selects the render class (an on-demand export of the node).
// The two classes are mutually exclusive by construction.
type Request struct {
	NodeID   string
	ImageRef string
	FileName string
}

// Outcome is the per-request result: the written file name and path on
// success, or the failure that prevented the write. Each request maps
// to exactly one outcome.
type Outcome struct {
	FileName string
	FilePath string
	Err      error
}

// Succeeded reports whether the asset was written.
func (o *Outcome) Succeeded() bool { return o.Err == nil }

// Result aggregates the outcomes of a download run. Outcomes are
// indexed by originating request, so order matches the request list.
type Result struct {
	Outcomes []Outcome
}

// AllSucceeded reports whether every requested asset was written.
func (r *Result) AllSucceeded() bool {
	for i := range r.Outcomes {
		if !r.Outcomes[i].Succeeded() {
			return false
		}
	}
	return true
}

// Written returns the file names of all successfully written assets,
// in request order.
func (r *Result) Written() []string {
	var names []string
	for i := range r.Outcomes {
		if r.Outcomes[i].Succeeded() {
			names = append(names, r.Outcomes[i].FileName)
		}
	}
	return names
}

// Config holds download settings.
type Config struct {
	// OutputDir is the destination directory, created if absent.
	// Required.
	OutputDir string

	// PNGScale is the export scale for raster renders. Defaults to
	// DefaultPNGScale.
	PNGScale float64

	// Concurrency bounds simultaneous downloads across both retrieval
	// classes. Defaults to DefaultConcurrency.
	Concurrency int
}

// Download retrieves all requested assets into cfg.OutputDir and
// reports a per-request outcome. The fills batch and the renders batch
// run concurrently and the call joins both before returning; individual
// downloads within each batch are bounded by one shared semaphore.
// Per-asset failures land in that asset's outcome; the call itself
// fails only on a precondition violation (empty destination, directory
// creation failure).
func Download(ctx context.Context, client *figma.Client, fileKey string, requests []Request, cfg Config) (*Result, error) {
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return nil, errors.New("output directory is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.PNGScale <= 0 {
		cfg.PNGScale = DefaultPNGScale
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory %q: %w", cfg.OutputDir, err)
	}

	result := &Result{Outcomes: make([]Outcome, len(requests))}

	// Resolve final file names up front, sequentially in request order,
	// so collision suffixes are deterministic and the download workers
	// never contend over shared naming state.
	usedNames := make(map[string]int, len(requests))
	fills, renders := partition(requests, result, usedNames)

	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup

	if len(fills) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			downloadFills(ctx, client, fileKey, requests, fills, result, cfg, sem)
		}()
	}
	if len(renders) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			downloadRenders(ctx, client, fileKey, requests, renders, result, cfg, sem)
		}()
	}
	wg.Wait()

	return result, nil
}

// partition validates each request, fixes its final file name, and
// splits the valid ones into fill and render index sets. The split is
// total: every request either joins exactly one class or carries its
// validation failure in its outcome slot.
func partition(requests []Request, result *Result, usedNames map[string]int) (fills, renders []int) {
	for i := range requests {
		req := &requests[i]
		out := &result.Outcomes[i]
		out.FileName = req.FileName

		if req.NodeID == "" {
			out.Err = errors.New("missing node ID")
			continue
		}
		if strings.TrimSpace(req.FileName) == "" {
			out.Err = errors.New("missing file name")
			continue
		}

		out.FileName = uniqueFileName(sanitizeFileName(req.FileName), usedNames)

		if req.ImageRef != "" {
			fills = append(fills, i)
		} else {
			renders = append(renders, i)
		}
	}
	return fills, renders
}

// downloadFills resolves the imageRefs of the fill-class requests to
// source URLs with a single file images lookup, then downloads each
// asset. A ref the API does not know is that item's failure, and a
// failed lookup fails every item in the batch without touching the
// renders batch.
func downloadFills(ctx context.Context, client *figma.Client, fileKey string, requests []Request, indexes []int, result *Result, cfg Config, sem chan struct{}) {
	urls, err := client.GetImageFills(ctx, fileKey)
	if err != nil {
		for _, i := range indexes {
			result.Outcomes[i].Err = fmt.Errorf("resolve image fills: %w", err)
		}
		return
	}

	var wg sync.WaitGroup
	for _, i := range indexes {
		sourceURL, ok := urls[requests[i].ImageRef]
		if !ok || sourceURL == "" {
			result.Outcomes[i].Err = fmt.Errorf("no download URL for image ref %s", requests[i].ImageRef)
			continue
		}

		wg.Add(1)
		go func(index int, url string) {
			defer wg.Done()
			fetchAsset(ctx, client, url, cfg.OutputDir, &result.Outcomes[index], sem)
		}(i, sourceURL)
	}
	wg.Wait()
}

// downloadRenders asks Figma to export the render-class nodes and
// downloads the results. Requests are grouped by export format so each
// format costs one render API round-trip (batched at the API's node
// limit), then items download concurrently.
func downloadRenders(ctx context.Context, client *figma.Client, fileKey string, requests []Request, indexes []int, result *Result, cfg Config, sem chan struct{}) {
	byFormat := make(map[string][]int)
	for _, i := range indexes {
		byFormat[renderFormat(requests[i].FileName)] = append(byFormat[renderFormat(requests[i].FileName)], i)
	}

	var wg sync.WaitGroup
	for format, group := range byFormat {
		scale := cfg.PNGScale
		if format == "svg" {
			scale = 1
		}

		for start := 0; start < len(group); start += maxNodesPerRequest {
			end := start + maxNodesPerRequest
			if end > len(group) {
				end = len(group)
			}
			batch := group[start:end]

			nodeIDs := make([]string, 0, len(batch))
			for _, i := range batch {
				nodeIDs = append(nodeIDs, requests[i].NodeID)
			}

			urls, err := client.GetImageRenders(ctx, fileKey, nodeIDs, format, scale)
			if err != nil {
				for _, i := range batch {
					result.Outcomes[i].Err = fmt.Errorf("render %s export: %w", format, err)
				}
				continue
			}

			for _, i := range batch {
				sourceURL := urls[requests[i].NodeID]
				if sourceURL == "" {
					result.Outcomes[i].Err = fmt.Errorf("figma could not render node %s", requests[i].NodeID)
					continue
				}

				wg.Add(1)
				go func(index int, url string) {
					defer wg.Done()
					fetchAsset(ctx, client, url, cfg.OutputDir, &result.Outcomes[index], sem)
				}(i, sourceURL)
			}
		}
	}
	wg.Wait()
}

// fetchAsset downloads one asset into the output directory, gated by
// the shared semaphore. Cancellation is honored both while queued and
// during the transfer, so a caller that gives up stops producing files.
func fetchAsset(ctx context.Context, client *figma.Client, sourceURL, outputDir string, out *Outcome, sem chan struct{}) {
	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-ctx.Done():
		out.Err = ctx.Err()
		return
	}

	body, err := client.Download(ctx, sourceURL)
	if err != nil {
		out.Err = fmt.Errorf("download %s: %w", out.FileName, err)
		return
	}
	defer body.Close()

	destPath := filepath.Join(outputDir, out.FileName)
	f, err := os.Create(destPath)
	if err != nil {
		out.Err = fmt.Errorf("create file %q: %w", destPath, err)
		return
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(destPath)
		out.Err = fmt.Errorf("write file %q: %w", destPath, err)
		return
	}
	if err := f.Close(); err != nil {
		out.Err = fmt.Errorf("close file %q: %w", destPath, err)
		return
	}

	out.FilePath = destPath
}

// renderFormat selects the export encoding from the requested file
// name: a vector extension exports as SVG, anything else rasterizes
// to PNG.
func renderFormat(fileName string) string {
	if strings.EqualFold(filepath.Ext(fileName), ".svg") {
		return "svg"
	}
	return "png"
}

// sanitizeFileName strips any path components and reduces the base
// name to kebab-case, preserving the extension. Empty results fall
// back to "asset".
func sanitizeFileName(fileName string) string {
	base := filepath.Base(fileName)
	ext := strings.ToLower(filepath.Ext(base))
	name := toKebabCase(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		name = "asset"
	}
	return name + ext
}

// uniqueFileName suffixes a file name that was already handed out in
// this run, so two requests targeting the same name never silently
// overwrite each other. The suffix keeps incrementing past candidates
// that were themselves handed out explicitly (icon.png after icon-2.png
// becomes icon-3.png, not a second icon-2.png).
func uniqueFileName(fileName string, usedNames map[string]int) string {
	count, exists := usedNames[fileName]
	if !exists {
		usedNames[fileName] = 1
		return fileName
	}

	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	for {
		count++
		unique := fmt.Sprintf("%s-%d%s", base, count, ext)
		if _, taken := usedNames[unique]; taken {
			continue
		}
		usedNames[fileName] = count
		usedNames[unique] = 1
		return unique
	}
}

// toKebabCase converts a string to kebab-case (lowercase with hyphens).
func toKebabCase(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")

	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '.' {
			result.WriteRune(r)
		}
	}

	return result.String()
}
