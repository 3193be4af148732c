package gateway

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        body.Bytes(),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"detail":"not found"}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *Client {
	return NewClient(ts.server.URL, WithHTTPClient(ts.server.Client()))
}

var ctx = context.Background()

func TestQueryPapers(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /query": `{"query":"What is the main finding?","answer":"X improves Y","retrieved_documents":[{"text":"chunk one","metadata":{"title":"Paper A"}},{"text":"chunk two"}]}`,
	})

	resp, err := ts.client().QueryPapers(ctx, "What is the main finding?", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Answer != "X improves Y" {
		t.Errorf("answer = %q, want %q", resp.Answer, "X improves Y")
	}
	if len(resp.RetrievedDocuments) != 2 {
		t.Fatalf("expected 2 retrieved documents, got %d", len(resp.RetrievedDocuments))
	}
	if resp.RetrievedDocuments[0].Metadata.Title != "Paper A" {
		t.Errorf("first doc title = %q, want %q", resp.RetrievedDocuments[0].Metadata.Title, "Paper A")
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if !strings.Contains(string(r.Body), `"top_k":5`) {
		t.Errorf("body = %s, want it to carry top_k 5", r.Body)
	}
	if !strings.Contains(string(r.Body), `"query":"What is the main finding?"`) {
		t.Errorf("body = %s, want it to carry the query", r.Body)
	}
}

func TestQueryPapers_DefaultTopK(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /query": `{"query":"q","answer":"a","retrieved_documents":[]}`,
	})

	if _, err := ts.client().QueryPapers(ctx, "q", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(string(ts.requests[0].Body), `"top_k":5`) {
		t.Errorf("body = %s, want default top_k 5", ts.requests[0].Body)
	}
}

func TestQueryPapers_RemoteError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte(`{"detail":"Error querying papers: model unavailable"}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).QueryPapers(ctx, "q", 5)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %T, want *RemoteError", err)
	}
	if remote.StatusCode != 500 {
		t.Errorf("status = %d, want 500", remote.StatusCode)
	}
	if remote.Detail != "Error querying papers: model unavailable" {
		t.Errorf("detail = %q, want the gateway message", remote.Detail)
	}
}

func TestQueryPapers_MalformedSuccessBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).QueryPapers(ctx, "q", 5)
	if err == nil {
		t.Fatal("expected decode error for malformed 200 body")
	}
	if IsRemote(err) {
		t.Errorf("malformed 200 body should not classify as remote, got %v", err)
	}
}

func TestUploadPaper(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /upload": `{"id":"42","title":"Attention Is All You Need","author":"Vaswani","page_count":15,"status":"success"}`,
	})

	paper, err := ts.client().UploadPaper(ctx, "attention.pdf", strings.NewReader("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if paper.ID != "42" {
		t.Errorf("id = %q, want 42", paper.ID)
	}
	if paper.PageCount != 15 {
		t.Errorf("page count = %d, want 15", paper.PageCount)
	}

	r := ts.requests[0]
	mediaType, params, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		t.Fatalf("parsing content type: %v", err)
	}
	if mediaType != "multipart/form-data" {
		t.Fatalf("content type = %q, want multipart/form-data", mediaType)
	}

	mr := multipart.NewReader(bytes.NewReader(r.Body), params["boundary"])
	part, err := mr.NextPart()
	if err != nil {
		t.Fatalf("reading multipart body: %v", err)
	}
	if part.FormName() != "file" {
		t.Errorf("form field = %q, want file", part.FormName())
	}
	if part.FileName() != "attention.pdf" {
		t.Errorf("filename = %q, want attention.pdf", part.FileName())
	}
	var content bytes.Buffer
	content.ReadFrom(part)
	if content.String() != "%PDF-1.4 fake" {
		t.Errorf("file content = %q, want the submitted bytes", content.String())
	}
}

func TestUploadPaper_RemoteError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"detail":"File must be a PDF"}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).UploadPaper(ctx, "paper.pdf", strings.NewReader("x"))
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if got := ErrorDetail(err); got != "File must be a PDF" {
		t.Errorf("detail = %q, want the gateway message", got)
	}
}

func TestListSessions(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /sessions": `{"sessions":[{"session_id":"abc-123","created_at":"2025-06-01T10:00:00Z"},{"session_id":"def-456","created_at":"2025-06-02T11:00:00Z"}]}`,
	})

	sessions, err := ts.client().ListSessions(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].SessionID != "abc-123" {
		t.Errorf("first session = %q, want abc-123", sessions[0].SessionID)
	}
}

func TestListSessions_EmptyList(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /sessions": `{"sessions":[]}`,
	})

	sessions, err := ts.client().ListSessions(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no sessions, got %d", len(sessions))
	}
}

func TestGetStats(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /stats": `{"document_count":12,"collection":"papers"}`,
	})

	stats, err := ts.client().GetStats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats["collection"] != "papers" {
		t.Errorf("collection = %v, want papers", stats["collection"])
	}
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	_, err := NewClient(ts.URL).ListSessions(ctx)
	if err == nil {
		t.Fatal("expected error for unreachable gateway")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
	if IsRemote(err) {
		t.Error("transport failure should not classify as remote")
	}
}

func TestNavigationalURLs(t *testing.T) {
	c := NewClient("http://localhost:8000/")

	if got := c.SessionURL("abc"); got != "http://localhost:8000/sessions/abc" {
		t.Errorf("session URL = %q", got)
	}
	if got := c.SessionExportURL("abc"); got != "http://localhost:8000/sessions/abc/export-pdf" {
		t.Errorf("export URL = %q", got)
	}
}
