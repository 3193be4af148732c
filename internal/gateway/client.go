// Package gateway is the HTTP client for the PaperShelf service. The
// service owns ingestion, embedding and generation; this package only
// speaks its fixed REST surface and translates failures into the
// RemoteError / transport taxonomy the orchestrators depend on.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultTopK is the number of retrieval hits requested per query.
const DefaultTopK = 5

// Client talks to a PaperShelf gateway instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// NewClient creates a gateway client for the given base URL
// (e.g. "http://localhost:8000").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured gateway address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// QueryPapers submits a question with the given retrieval depth.
func (c *Client) QueryPapers(ctx context.Context, query string, topK int) (*QueryResponse, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	body := map[string]any{
		"query": query,
		"top_k": topK,
	}

	var result QueryResponse
	if err := c.postJSON(ctx, "/query", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadPaper submits one PDF as a multipart upload with form field "file".
// The request fully settles before UploadPaper returns; callers drive
// sequencing by calling it one file at a time.
func (c *Client) UploadPaper(ctx context.Context, filename string, content io.Reader) (*Paper, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("building multipart form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result Paper
	if err := c.send(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListSessions fetches the server's session log.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Sessions []Session `json:"sessions"`
	}
	if err := c.send(req, &result); err != nil {
		return nil, err
	}
	return result.Sessions, nil
}

// GetStats fetches collection statistics.
func (c *Client) GetStats(ctx context.Context) (Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats", nil)
	if err != nil {
		return nil, err
	}

	var result Stats
	if err := c.send(req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SessionURL returns the navigational URL for viewing a session. The client
// links to it but never fetches it.
func (c *Client) SessionURL(sessionID string) string {
	return c.baseURL + "/sessions/" + sessionID
}

// SessionExportURL returns the navigational URL for the PDF export of a
// session.
func (c *Client) SessionExportURL(sessionID string) string {
	return c.baseURL + "/sessions/" + sessionID + "/export-pdf"
}

func (c *Client) postJSON(ctx context.Context, path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(req, result)
}

// send performs the request and decodes the response. Non-2xx statuses
// become a *RemoteError carrying the gateway's {detail} payload; a 2xx body
// that does not decode is an error too, since the caller renders its fields.
func (c *Client) send(req *http.Request, result any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway not reachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteError{
			StatusCode: resp.StatusCode,
			Detail:     extractDetail(body),
		}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// extractDetail pulls the FastAPI-style {"detail": "..."} message out of an
// error body. Anything else yields an empty detail and the generic fallback.
func extractDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Detail
}
