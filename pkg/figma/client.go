// Package figma provides an authenticated client for the Figma REST API:
// file and node retrieval, image render exports, image fill resolution,
// and asset downloads. The client carries bounded retry with backoff for
// rate limits and server errors; callers control cancellation through
// context.Context and decide their own retry policy above that.
package figma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.figma.com/v1"

const maxRetries = 3

// Client is a Figma API client with HTTP settings tuned for large design
// files. It is immutable after construction and safe for concurrent use;
// construct one per process and share it across calls.
type Client struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
	retryDelay  time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithBaseURL overrides the Figma API base URL. Used by tests to point
// the client at a local stub server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger for request-level debug output. A nil
// logger falls back to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new Figma API client with the provided personal
// access token. The transport uses connection pooling with HTTP/2
// disabled (stream errors show up on very large files) and a 10-minute
// overall timeout; pass a context with a shorter deadline to tighten it
// per call.
func NewClient(accessToken string, opts ...Option) *Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 10,
		ForceAttemptHTTP2:   false,
	}

	c := &Client{
		accessToken: accessToken,
		baseURL:     defaultBaseURL,
		httpClient: &http.Client{
			Timeout:   10 * time.Minute,
			Transport: transport,
		},
		logger:     slog.Default(),
		retryDelay: 2 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// fileKeyPattern matches a bare Figma file key.
var fileKeyPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// fileURLPattern matches figma.com file and design URLs. Anchored so the
// entire URL must match the expected shape.
var fileURLPattern = regexp.MustCompile(`^https?://(?:www\.)?figma\.com/(?:file|design)/([A-Za-z0-9]+)(?:/|\?|$)`)

// ParseFileKey resolves a caller-supplied file identifier, which may be
// either a bare file key or a full figma.com /file/ or /design/ URL.
// Returns an error when the input is neither.
func ParseFileKey(keyOrURL string) (string, error) {
	if fileKeyPattern.MatchString(keyOrURL) {
		return keyOrURL, nil
	}
	return ExtractFileKey(keyOrURL)
}

// ExtractFileKey extracts the unique file identifier from a Figma URL.
// Supports both /file/ and /design/ URL patterns
// (e.g., figma.com/design/ABC123/Design-Name).
func ExtractFileKey(figmaURL string) (string, error) {
	matches := fileURLPattern.FindStringSubmatch(figmaURL)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Figma file reference %q: must be a file key or a figma.com URL with /file/ or /design/ path", figmaURL)
	}
	return matches[1], nil
}

// ExtractNodeID extracts the node-id query parameter from a Figma URL,
// normalized to the canonical colon form the node API expects. Returns
// an empty string when the URL carries no node-id (or the input is not a
// URL at all).
func ExtractNodeID(figmaURL string) string {
	u, err := url.Parse(figmaURL)
	if err != nil {
		return ""
	}
	return NormalizeNodeID(u.Query().Get("node-id"))
}

// NormalizeNodeID converts the URL-encoded dash form of a node ID
// ("11933-305884") to the canonical colon form ("11933:305884") used by
// the Figma API. IDs already in colon form pass through unchanged.
func NormalizeNodeID(nodeID string) string {
	nodeID = strings.TrimSpace(nodeID)
	if strings.Contains(nodeID, ":") {
		return nodeID
	}
	if i := strings.LastIndex(nodeID, "-"); i > 0 {
		return nodeID[:i] + ":" + nodeID[i+1:]
	}
	return nodeID
}

// GetFile retrieves complete file data including the document tree,
// published styles, and metadata. A positive depth limits how many
// levels of the document tree the API returns below the page level.
func (c *Client) GetFile(ctx context.Context, fileKey string, depth int) (*File, error) {
	query := url.Values{}
	if depth > 0 {
		query.Set("depth", strconv.Itoa(depth))
	}

	var file File
	if err := c.get(ctx, fmt.Sprintf("/files/%s", fileKey), query, &file); err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileKey, err)
	}
	return &file, nil
}

// GetNodes retrieves specific nodes from a file, identified by their
// canonical colon-form IDs. A positive depth limits the returned subtree
// below each requested node. Unknown IDs come back as nil entries in the
// response map rather than an error.
func (c *Client) GetNodes(ctx context.Context, fileKey string, nodeIDs []string, depth int) (*NodesResponse, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(nodeIDs, ","))
	if depth > 0 {
		query.Set("depth", strconv.Itoa(depth))
	}

	var resp NodesResponse
	if err := c.get(ctx, fmt.Sprintf("/files/%s/nodes", fileKey), query, &resp); err != nil {
		return nil, fmt.Errorf("get nodes %v from file %s: %w", nodeIDs, fileKey, err)
	}
	return &resp, nil
}

// GetImageRenders asks Figma to export the given nodes on demand and
// returns a map of node ID to a temporary download URL. Format is one of
// "png", "svg", "jpg", "pdf"; scale applies to raster formats. A node
// Figma could not render maps to an empty URL.
func (c *Client) GetImageRenders(ctx context.Context, fileKey string, nodeIDs []string, format string, scale float64) (map[string]string, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(nodeIDs, ","))
	query.Set("format", format)
	if scale > 0 {
		query.Set("scale", strconv.FormatFloat(scale, 'g', -1, 64))
	}

	var resp ImageRendersResponse
	if err := c.get(ctx, fmt.Sprintf("/images/%s", fileKey), query, &resp); err != nil {
		return nil, fmt.Errorf("render images for file %s: %w", fileKey, err)
	}
	if resp.Err != "" {
		return nil, fmt.Errorf("render images for file %s: %s", fileKey, resp.Err)
	}
	return resp.Images, nil
}

// GetImageFills resolves every imageRef stored against the file to a
// temporary download URL. Unlike renders, fills are already-encoded
// bitmaps embedded in the document; no rasterization happens upstream.
func (c *Client) GetImageFills(ctx context.Context, fileKey string) (map[string]string, error) {
	var resp ImageFillsResponse
	if err := c.get(ctx, fmt.Sprintf("/files/%s/images", fileKey), nil, &resp); err != nil {
		return nil, fmt.Errorf("get image fills for file %s: %w", fileKey, err)
	}
	if resp.Error {
		return nil, fmt.Errorf("get image fills for file %s: API reported error status %d", fileKey, resp.Status)
	}
	return resp.Meta.Images, nil
}

// Download fetches the asset bytes behind a temporary URL returned by
// GetImageRenders or GetImageFills. The caller owns the returned body
// and must close it.
func (c *Client) Download(ctx context.Context, assetURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download asset: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "asset download failed"}
	}
	return resp.Body, nil
}

// get performs an authenticated GET against the Figma API and decodes
// the JSON response into out. It retries up to maxRetries times with
// linear backoff on network errors, 429, and 5xx responses; the backoff
// sleep aborts early when ctx is canceled. Non-retryable API errors are
// returned as *APIError so callers can classify them by status code.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("X-Figma-Token", c.accessToken)

		body, err := c.do(req)
		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			return nil
		}

		lastErr = err
		if !IsRetryable(err) && !isNetworkError(err) {
			return err
		}
		if attempt == maxRetries {
			break
		}

		c.logger.Debug("figma API request failed, retrying",
			"path", path, "attempt", attempt, "error", err)

		select {
		case <-time.After(time.Duration(attempt) * c.retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

// do executes a single request attempt and reads the full response body.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &networkError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &networkError{err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiErrorMessage(body)}
	}
	return body, nil
}

// apiErrorMessage pulls the human-readable error description out of a
// Figma error body, falling back to the raw body text.
func apiErrorMessage(body []byte) string {
	var payload struct {
		Err     string `json:"err"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Err != "" {
			return payload.Err
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// networkError marks a transport-level failure (connection refused,
// timeout, truncated body) as distinct from an API-level *APIError.
type networkError struct {
	err error
}

func (e *networkError) Error() string { return e.err.Error() }
func (e *networkError) Unwrap() error { return e.err }

func isNetworkError(err error) bool {
	var netErr *networkError
	return errors.As(err, &netErr)
}
