package imager

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/Weavy-AI/figma-mcp-server/pkg/figma"
)

// stubFigma is an in-process Figma API plus asset CDN. Fills maps
// imageRef -> asset body; Renders maps nodeID -> asset body, with an
// empty body meaning "Figma could not render this node".
type stubFigma struct {
	Fills   map[string]string
	Renders map[string]string

	fillCalls   atomic.Int64
	renderCalls atomic.Int64

	lastRenderFormat string
	lastRenderScale  string
}

func (s *stubFigma) start(t *testing.T) *figma.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/files/KEY/images", func(w http.ResponseWriter, r *http.Request) {
		s.fillCalls.Add(1)
		images := make(map[string]string, len(s.Fills))
		for ref := range s.Fills {
			images[ref] = fmt.Sprintf("http://%s/cdn/fill/%s", r.Host, ref)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"error": false, "status": 200,
			"meta": map[string]any{"images": images},
		})
	})
	mux.HandleFunc("/images/KEY", func(w http.ResponseWriter, r *http.Request) {
		s.renderCalls.Add(1)
		s.lastRenderFormat = r.URL.Query().Get("format")
		s.lastRenderScale = r.URL.Query().Get("scale")

		images := make(map[string]string)
		for _, id := range splitIDs(r.URL.Query().Get("ids")) {
			if s.Renders[id] == "" {
				images[id] = ""
				continue
			}
			images[id] = fmt.Sprintf("http://%s/cdn/render/%s", r.Host, id)
		}
		json.NewEncoder(w).Encode(map[string]any{"err": "", "images": images})
	})
	mux.HandleFunc("/cdn/fill/", func(w http.ResponseWriter, r *http.Request) {
		body, ok := s.Fills[filepath.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	})
	mux.HandleFunc("/cdn/render/", func(w http.ResponseWriter, r *http.Request) {
		body := s.Renders[filepath.Base(r.URL.Path)]
		if body == "" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return figma.NewClient("test-token", figma.WithBaseURL(server.URL))
}

func splitIDs(ids string) []string {
	var result []string
	start := 0
	for i := 0; i <= len(ids); i++ {
		if i == len(ids) || ids[i] == ',' {
			if i > start {
				result = append(result, ids[start:i])
			}
			start = i + 1
		}
	}
	return result
}

func TestDownloadRequiresOutputDir(t *testing.T) {
	stub := &stubFigma{}
	client := stub.start(t)

	_, err := Download(context.Background(), client, "KEY",
		[]Request{{NodeID: "1:1", FileName: "a.png"}}, Config{OutputDir: "  "})
	if err == nil {
		t.Fatal("Download() expected validation error for blank output dir")
	}
	if stub.fillCalls.Load() != 0 || stub.renderCalls.Load() != 0 {
		t.Error("validation failure must happen before any retrieval")
	}
}

func TestDownloadFillAndRender(t *testing.T) {
	stub := &stubFigma{
		Fills:   map[string]string{"ref1": "fill-bytes"},
		Renders: map[string]string{"1:2": "<svg/>"},
	}
	client := stub.start(t)
	dir := t.TempDir()

	result, err := Download(context.Background(), client, "KEY", []Request{
		{NodeID: "1:1", ImageRef: "ref1", FileName: "photo.png"},
		{NodeID: "1:2", FileName: "icon.svg"},
	}, Config{OutputDir: dir})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if !result.AllSucceeded() {
		t.Fatalf("AllSucceeded() = false, outcomes %+v", result.Outcomes)
	}
	if got := result.Written(); len(got) != 2 {
		t.Fatalf("Written() = %v, want 2 entries", got)
	}

	// Exactly one fill lookup and one render export.
	if stub.fillCalls.Load() != 1 {
		t.Errorf("fill API calls = %d, want 1", stub.fillCalls.Load())
	}
	if stub.renderCalls.Load() != 1 {
		t.Errorf("render API calls = %d, want 1", stub.renderCalls.Load())
	}
	if stub.lastRenderFormat != "svg" {
		t.Errorf("render format = %q, want svg (.svg file name selects vector export)", stub.lastRenderFormat)
	}

	for _, name := range []string{"photo.png", "icon.svg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
}

func TestDownloadPNGScale(t *testing.T) {
	stub := &stubFigma{Renders: map[string]string{"1:1": "png-bytes"}}
	client := stub.start(t)

	result, err := Download(context.Background(), client, "KEY",
		[]Request{{NodeID: "1:1", FileName: "banner.png"}},
		Config{OutputDir: t.TempDir(), PNGScale: 3})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !result.AllSucceeded() {
		t.Fatalf("outcomes: %+v", result.Outcomes)
	}
	if stub.lastRenderFormat != "png" {
		t.Errorf("render format = %q, want png", stub.lastRenderFormat)
	}
	if stub.lastRenderScale != "3" {
		t.Errorf("render scale = %q, want 3", stub.lastRenderScale)
	}
}

func TestDownloadNonFailFast(t *testing.T) {
	// Node 2:2 is known to the render API but unrenderable, so its
	// item fails while its siblings succeed.
	stub := &stubFigma{
		Renders: map[string]string{"2:1": "a", "2:3": "c"},
	}
	client := stub.start(t)

	result, err := Download(context.Background(), client, "KEY", []Request{
		{NodeID: "2:1", FileName: "first.png"},
		{NodeID: "2:2", FileName: "second.png"},
		{NodeID: "2:3", FileName: "third.png"},
	}, Config{OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if len(result.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3 (no drops, no duplicates)", len(result.Outcomes))
	}
	if !result.Outcomes[0].Succeeded() || !result.Outcomes[2].Succeeded() {
		t.Errorf("items 1 and 3 should succeed: %+v", result.Outcomes)
	}
	if result.Outcomes[1].Succeeded() {
		t.Error("item 2 should fail")
	}
	if result.AllSucceeded() {
		t.Error("AllSucceeded() must be false with one failed item")
	}
}

func TestDownloadUnknownFillRefDoesNotTouchRenders(t *testing.T) {
	// The fill lookup succeeds but knows nothing about the requested
	// ref, so the fill item fails while the render item still lands.
	stub := &stubFigma{
		Renders: map[string]string{"1:2": "<svg/>"},
	}
	client := stub.start(t)

	result, err := Download(context.Background(), client, "KEY", []Request{
		{NodeID: "1:1", ImageRef: "unknown-ref", FileName: "photo.png"},
		{NodeID: "1:2", FileName: "icon.svg"},
	}, Config{OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if result.Outcomes[0].Succeeded() {
		t.Error("fill item with unknown ref should fail")
	}
	if !result.Outcomes[1].Succeeded() {
		t.Errorf("render item should succeed independently: %v", result.Outcomes[1].Err)
	}
}

func TestPartitionTotality(t *testing.T) {
	requests := []Request{
		{NodeID: "1:1", ImageRef: "r1", FileName: "a.png"},
		{NodeID: "1:2", FileName: "b.png"},
		{NodeID: "1:3", ImageRef: "r2", FileName: "c.png"},
		{NodeID: "", FileName: "d.png"},      // invalid: no node ID
		{NodeID: "1:5", FileName: "   "},     // invalid: blank file name
		{NodeID: "1:6", FileName: "e.svg"},
	}

	result := &Result{Outcomes: make([]Outcome, len(requests))}
	fills, renders := partition(requests, result, make(map[string]int))

	invalid := 0
	for i := range result.Outcomes {
		if result.Outcomes[i].Err != nil {
			invalid++
		}
	}

	if len(fills)+len(renders)+invalid != len(requests) {
		t.Errorf("partition not total: fills=%d renders=%d invalid=%d of %d",
			len(fills), len(renders), invalid, len(requests))
	}

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, fills...), renders...) {
		if seen[i] {
			t.Errorf("request %d landed in both classes", i)
		}
		seen[i] = true
		if (requests[i].ImageRef != "") != contains(fills, i) {
			t.Errorf("request %d classified against its imageRef presence", i)
		}
	}
}

func contains(indexes []int, target int) bool {
	for _, i := range indexes {
		if i == target {
			return true
		}
	}
	return false
}

func TestFileNameCollisions(t *testing.T) {
	stub := &stubFigma{
		Renders: map[string]string{"1:1": "a", "1:2": "b"},
	}
	client := stub.start(t)
	dir := t.TempDir()

	result, err := Download(context.Background(), client, "KEY", []Request{
		{NodeID: "1:1", FileName: "icon.png"},
		{NodeID: "1:2", FileName: "icon.png"},
	}, Config{OutputDir: dir})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !result.AllSucceeded() {
		t.Fatalf("outcomes: %+v", result.Outcomes)
	}

	if result.Outcomes[0].FileName != "icon.png" {
		t.Errorf("first file = %q, want icon.png", result.Outcomes[0].FileName)
	}
	if result.Outcomes[1].FileName != "icon-2.png" {
		t.Errorf("second file = %q, want icon-2.png", result.Outcomes[1].FileName)
	}
}

func TestUniqueFileNameSkipsTakenSuffixes(t *testing.T) {
	// A collision suffix must not land on a name that was already
	// handed out explicitly: icon.png after icon-2.png gets icon-3.png.
	used := make(map[string]int)
	got := []string{
		uniqueFileName("icon.png", used),
		uniqueFileName("icon-2.png", used),
		uniqueFileName("icon.png", used),
		uniqueFileName("icon.png", used),
	}
	want := []string{"icon.png", "icon-2.png", "icon-3.png", "icon-4.png"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name %d = %q, want %q", i, got[i], want[i])
		}
	}

	seen := make(map[string]bool)
	for _, name := range got {
		if seen[name] {
			t.Errorf("name %q handed out twice", name)
		}
		seen[name] = true
	}
}

func TestDownloadCancellation(t *testing.T) {
	stub := &stubFigma{Renders: map[string]string{"1:1": "a"}}
	client := stub.start(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Download(ctx, client, "KEY",
		[]Request{{NodeID: "1:1", FileName: "a.png"}},
		Config{OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if result.AllSucceeded() {
		t.Error("canceled context must fail the in-flight items")
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already clean", in: "icon.png", want: "icon.png"},
		{name: "spaces to hyphens", in: "Hero Banner.png", want: "hero-banner.png"},
		{name: "underscores to hyphens", in: "nav_bar.svg", want: "nav-bar.svg"},
		{name: "path components stripped", in: "../../etc/passwd.png", want: "passwd.png"},
		{name: "special characters dropped", in: "logo (v2)!.png", want: "logo-v2.png"},
		{name: "empty base falls back", in: "???.png", want: "asset.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeFileName(tt.in); got != tt.want {
				t.Errorf("sanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderFormat(t *testing.T) {
	tests := []struct {
		fileName string
		want     string
	}{
		{fileName: "icon.svg", want: "svg"},
		{fileName: "ICON.SVG", want: "svg"},
		{fileName: "photo.png", want: "png"},
		{fileName: "photo.jpg", want: "png"},
		{fileName: "noext", want: "png"},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			if got := renderFormat(tt.fileName); got != tt.want {
				t.Errorf("renderFormat(%q) = %q, want %q", tt.fileName, got, tt.want)
			}
		})
	}
}
