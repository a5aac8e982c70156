// Package formatter serializes tool results into the compact,
// line-oriented YAML text returned to MCP clients. YAML keeps the
// output human-readable and considerably smaller than indented JSON,
// which matters for consumers with tight context budgets.
package formatter

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Weavy-AI/figma-mcp-server/pkg/imager"
	"github.com/Weavy-AI/figma-mcp-server/pkg/simplify"
)

// Design encodes a simplified design as YAML with metadata, nodes, and
// globalVars top-level sections.
func Design(design *simplify.Design) (string, error) {
	data, err := yaml.Marshal(design)
	if err != nil {
		return "", fmt.Errorf("encode design as YAML: %w", err)
	}
	return string(data), nil
}

// downloadReport is the structured summary of an asset download run:
// per-file outcomes plus derived counters so callers can tell at a
// glance whether everything landed and, if not, what failed.
type downloadReport struct {
	Success    bool         `yaml:"success"`
	Downloaded int          `yaml:"downloaded"`
	Failed     int          `yaml:"failed"`
	Files      []reportFile `yaml:"files"`
}

// reportFile is the outcome of a single asset request.
type reportFile struct {
	FileName string `yaml:"fileName"`
	Status   string `yaml:"status"`
	Path     string `yaml:"path,omitempty"`
	Error    string `yaml:"error,omitempty"`
}

// DownloadReport encodes an asset download result as YAML. Every
// requested asset appears exactly once, in request order, marked
// "written" or "failed" with the failure reason.
func DownloadReport(result *imager.Result) (string, error) {
	report := downloadReport{
		Success: result.AllSucceeded(),
		Files:   make([]reportFile, 0, len(result.Outcomes)),
	}

	for i := range result.Outcomes {
		outcome := &result.Outcomes[i]
		file := reportFile{FileName: outcome.FileName}
		if outcome.Succeeded() {
			file.Status = "written"
			file.Path = outcome.FilePath
			report.Downloaded++
		} else {
			file.Status = "failed"
			file.Error = outcome.Err.Error()
			report.Failed++
		}
		report.Files = append(report.Files, file)
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encode download report as YAML: %w", err)
	}
	return string(data), nil
}
