package formatter

import (
	"errors"
	"strings"
	"testing"

	"github.com/Weavy-AI/figma-mcp-server/pkg/imager"
	"github.com/Weavy-AI/figma-mcp-server/pkg/simplify"
)

func TestDesignSections(t *testing.T) {
	design := &simplify.Design{
		Metadata: simplify.Metadata{Name: "My Design", LastModified: "2026-08-01T10:00:00Z"},
		Nodes: []*simplify.Node{
			{ID: "1:1", Name: "Page", Type: "CANVAS", Children: []*simplify.Node{
				{ID: "2:1", Name: "Button", Type: "FRAME", Fills: "fill_1"},
			}},
		},
		GlobalVars: simplify.GlobalVars{Styles: map[simplify.StyleID]any{
			"fill_1": []simplify.Paint{{Type: "SOLID", Hex: "#FF0000"}},
		}},
	}

	text, err := Design(design)
	if err != nil {
		t.Fatalf("Design() error = %v", err)
	}

	for _, section := range []string{"metadata:", "nodes:", "globalVars:"} {
		if !strings.Contains(text, section) {
			t.Errorf("output missing top-level section %q:\n%s", section, text)
		}
	}
	if !strings.Contains(text, "name: My Design") {
		t.Errorf("output missing file name:\n%s", text)
	}
	if !strings.Contains(text, "fill_1") {
		t.Errorf("output missing style reference:\n%s", text)
	}
	if strings.Contains(text, "thumbnailUrl") {
		t.Errorf("empty optional metadata must be omitted:\n%s", text)
	}
}

func TestDownloadReport(t *testing.T) {
	result := &imager.Result{Outcomes: []imager.Outcome{
		{FileName: "icon.svg", FilePath: "/tmp/assets/icon.svg"},
		{FileName: "photo.png", Err: errors.New("no download URL for image ref ref1")},
	}}

	text, err := DownloadReport(result)
	if err != nil {
		t.Fatalf("DownloadReport() error = %v", err)
	}

	for _, want := range []string{
		"success: false",
		"downloaded: 1",
		"failed: 1",
		"fileName: icon.svg",
		"status: written",
		"path: /tmp/assets/icon.svg",
		"fileName: photo.png",
		"status: failed",
		"no download URL for image ref ref1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

func TestDownloadReportAllSucceeded(t *testing.T) {
	result := &imager.Result{Outcomes: []imager.Outcome{
		{FileName: "a.png", FilePath: "/out/a.png"},
	}}

	text, err := DownloadReport(result)
	if err != nil {
		t.Fatalf("DownloadReport() error = %v", err)
	}
	if !strings.Contains(text, "success: true") {
		t.Errorf("report should collapse to success: true:\n%s", text)
	}
	if strings.Contains(text, "error:") {
		t.Errorf("successful report must carry no error fields:\n%s", text)
	}
}
