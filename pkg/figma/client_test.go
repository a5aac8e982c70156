package figma

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseFileKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare file key",
			input: "4gkABR5gEZnIvlCaXmA4KI",
			want:  "4gkABR5gEZnIvlCaXmA4KI",
		},
		{
			name:  "valid /file/ URL",
			input: "https://www.figma.com/file/ABC123XYZ/Design-Name",
			want:  "ABC123XYZ",
		},
		{
			name:  "valid /design/ URL",
			input: "https://www.figma.com/design/ABC123XYZ/Design-Name",
			want:  "ABC123XYZ",
		},
		{
			name:  "URL with node-id parameter",
			input: "https://www.figma.com/design/4gkABR5gEZnIvlCaXmA4KI/My-File?node-id=11933-305884",
			want:  "4gkABR5gEZnIvlCaXmA4KI",
		},
		{
			name:  "URL without www subdomain",
			input: "https://figma.com/file/ABC123XYZ/Design-Name",
			want:  "ABC123XYZ",
		},
		{
			name:  "URL with http protocol",
			input: "http://www.figma.com/file/ABC123XYZ/Design-Name",
			want:  "ABC123XYZ",
		},
		{
			name:  "URL with trailing slash",
			input: "https://www.figma.com/file/ABC123XYZ/",
			want:  "ABC123XYZ",
		},
		{
			name:    "invalid URL - missing file key",
			input:   "https://www.figma.com/file/",
			wantErr: true,
		},
		{
			name:    "invalid URL - wrong domain",
			input:   "https://www.example.com/file/ABC123XYZ",
			wantErr: true,
		},
		{
			name:    "invalid URL - wrong path",
			input:   "https://www.figma.com/dashboard/ABC123XYZ",
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:  "file key with mixed alphanumeric",
			input: "https://www.figma.com/file/aB1cD2eF3gH4iJ5kL6/MyDesign",
			want:  "aB1cD2eF3gH4iJ5kL6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFileKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFileKey() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseFileKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeNodeID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{name: "colon form passes through", id: "123:456", want: "123:456"},
		{name: "dash form converts", id: "11933-305884", want: "11933:305884"},
		{name: "only last dash converts", id: "I123-456-789", want: "I123-456:789"},
		{name: "leading dash untouched", id: "-123", want: "-123"},
		{name: "whitespace trimmed", id: "  123:456 ", want: "123:456"},
		{name: "empty", id: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeNodeID(tt.id); got != tt.want {
				t.Errorf("NormalizeNodeID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestExtractNodeID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "node-id with dash",
			url:  "https://www.figma.com/design/ABC123/My-File?node-id=11933-305884",
			want: "11933:305884",
		},
		{
			name: "node-id with colon",
			url:  "https://www.figma.com/file/ABC123/Design?node-id=123:456",
			want: "123:456",
		},
		{
			name: "node-id among other parameters",
			url:  "https://www.figma.com/file/ABC123/Design?t=xyz&node-id=123-456&mode=dev",
			want: "123:456",
		},
		{
			name: "no node-id",
			url:  "https://www.figma.com/file/ABC123/Design",
			want: "",
		},
		{
			name: "bare key",
			url:  "ABC123",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractNodeID(tt.url); got != tt.want {
				t.Errorf("ExtractNodeID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

// testClient returns a client pointed at a stub API server with a
// near-zero retry delay so retry tests stay fast.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test-token", WithBaseURL(server.URL))
	client.retryDelay = time.Millisecond
	return client
}

func TestGetFileRetriesOnRateLimit(t *testing.T) {
	var attempts int
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if got := r.Header.Get("X-Figma-Token"); got != "test-token" {
			t.Errorf("X-Figma-Token = %q, want %q", got, "test-token")
		}
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"name":"My Design","document":{"id":"0:0","type":"DOCUMENT"}}`))
	}))

	file, err := client.GetFile(context.Background(), "ABC123", 0)
	if err != nil {
		t.Fatalf("GetFile() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if file.Name != "My Design" {
		t.Errorf("file.Name = %q, want %q", file.Name, "My Design")
	}
}

func TestGetFileDoesNotRetryNotFound(t *testing.T) {
	var attempts int
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"err":"Not found"}`))
	}))

	_, err := client.GetFile(context.Background(), "MISSING", 0)
	if err == nil {
		t.Fatal("GetFile() expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (404 must not retry)", attempts)
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not an *APIError", err)
	}
	if apiErr.Message != "Not found" {
		t.Errorf("apiErr.Message = %q, want %q", apiErr.Message, "Not found")
	}
}

func TestGetNodesQueryParameters(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/ABC123/nodes" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/files/ABC123/nodes")
		}
		if got := r.URL.Query().Get("ids"); got != "1:2,3:4" {
			t.Errorf("ids = %q, want %q", got, "1:2,3:4")
		}
		if got := r.URL.Query().Get("depth"); got != "2" {
			t.Errorf("depth = %q, want %q", got, "2")
		}
		w.Write([]byte(`{"name":"My Design","nodes":{"1:2":{"document":{"id":"1:2","type":"FRAME"}},"3:4":null}}`))
	}))

	resp, err := client.GetNodes(context.Background(), "ABC123", []string{"1:2", "3:4"}, 2)
	if err != nil {
		t.Fatalf("GetNodes() error = %v", err)
	}
	if resp.Nodes["1:2"] == nil {
		t.Error("expected node 1:2 to be present")
	}
	if resp.Nodes["3:4"] != nil {
		t.Error("expected unknown node 3:4 to decode as nil")
	}
}

func TestGetImageRenders(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/ABC123" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/images/ABC123")
		}
		if got := r.URL.Query().Get("format"); got != "svg" {
			t.Errorf("format = %q, want %q", got, "svg")
		}
		w.Write([]byte(`{"err":"","images":{"1:2":"https://cdn.example/render.svg","3:4":""}}`))
	}))

	images, err := client.GetImageRenders(context.Background(), "ABC123", []string{"1:2", "3:4"}, "svg", 1)
	if err != nil {
		t.Fatalf("GetImageRenders() error = %v", err)
	}
	if images["1:2"] != "https://cdn.example/render.svg" {
		t.Errorf("images[1:2] = %q", images["1:2"])
	}
	if images["3:4"] != "" {
		t.Errorf("images[3:4] = %q, want empty (unrenderable)", images["3:4"])
	}
}

func TestGetImageFills(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/ABC123/images" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/files/ABC123/images")
		}
		w.Write([]byte(`{"error":false,"status":200,"meta":{"images":{"ref1":"https://cdn.example/a.png"}}}`))
	}))

	fills, err := client.GetImageFills(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("GetImageFills() error = %v", err)
	}
	if fills["ref1"] != "https://cdn.example/a.png" {
		t.Errorf("fills[ref1] = %q", fills["ref1"])
	}
}

func TestGetHonorsContextCancellation(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	client.retryDelay = time.Hour // cancellation must win over backoff

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetFile(ctx, "ABC123", 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("GetFile() error = %v, want context.Canceled", err)
	}
}
