package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/afsharalex/PaperShelf/internal/gateway"
	"github.com/afsharalex/PaperShelf/internal/history"
	"github.com/afsharalex/PaperShelf/internal/uploader"
)

// Asker runs a question through the query pipeline.
type Asker interface {
	Ask(ctx context.Context, question string) (history.Record, error)
}

// Submitter runs files through the upload pipeline.
type Submitter interface {
	Submit(ctx context.Context, files []uploader.FileHandle) (uploader.BatchResult, error)
}

// SessionLister fetches chat sessions from the gateway.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]gateway.Session, error)
}

// Deps holds dependencies for the MCP server.
type Deps struct {
	Queries  Asker
	Uploads  Submitter
	Sessions SessionLister
	History  *history.Store
}

// New creates an MCP server with all PaperShelf tools and resources registered.
func New(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"papershelf",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("PaperShelf — upload academic papers and ask questions answered from their content."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask_papers",
			mcp.WithDescription("Ask a question answered from the uploaded papers. Returns the answer plus the retrieved source passages."),
			mcp.WithString("query", mcp.Description("The question to ask"), mcp.Required()),
		),
		mcpAskPapers(deps),
	)

	s.AddTool(
		mcp.NewTool("upload_paper",
			mcp.WithDescription("Upload one or more PDF files into the paper library."),
			mcp.WithArray("paths", mcp.Description("Filesystem paths of PDF files to upload"), mcp.Required()),
		),
		mcpUploadPaper(deps),
	)

	s.AddTool(
		mcp.NewTool("list_sessions",
			mcp.WithDescription("List stored chat sessions on the PaperShelf service."),
		),
		mcpListSessions(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"papershelf://history",
			"Query History",
			mcp.WithResourceDescription("Recent queries with answers and retrieved sources"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceHistory(deps),
	)

	return s
}

func mcpAskPapers(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		rec, err := deps.Queries.Ask(ctx, q)
		if err != nil {
			if gateway.IsRemote(err) {
				return mcpError(gateway.ErrorDetail(err)), nil
			}
			return mcpError(err.Error()), nil
		}

		type sourceResult struct {
			Title string `json:"title,omitempty"`
			Text  string `json:"text"`
		}
		result := struct {
			Answer  string         `json:"answer"`
			Sources []sourceResult `json:"sources"`
		}{
			Answer:  rec.Answer,
			Sources: make([]sourceResult, len(rec.Documents)),
		}
		for i, d := range rec.Documents {
			result.Sources[i] = sourceResult{Title: d.Metadata.Title, Text: d.Text}
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpUploadPaper(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		paths := req.GetStringSlice("paths", nil)
		if len(paths) == 0 {
			return mcpError("paths is required"), nil
		}

		for _, p := range paths {
			if _, err := os.Stat(p); err != nil {
				return mcpError(fmt.Sprintf("cannot read %s: %v", filepath.Base(p), err)), nil
			}
		}

		batch, err := deps.Uploads.Submit(ctx, uploader.PathHandles(paths))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		report := uploader.Describe(batch)
		out := report.Title
		for _, line := range report.Lines {
			out += "\n" + line
		}
		if batch.HasErrors {
			return mcpError(out), nil
		}
		return mcpText(out), nil
	}
}

func mcpListSessions(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessions, err := deps.Sessions.ListSessions(ctx)
		if err != nil {
			if gateway.IsRemote(err) {
				return mcpError(gateway.ErrorDetail(err)), nil
			}
			return mcpError(err.Error()), nil
		}

		if len(sessions) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(sessions)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal sessions: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpResourceHistory(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records := deps.History.Load()

		type entry struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Query     string `json:"query"`
			Answer    string `json:"answer"`
		}
		entries := make([]entry, len(records))
		for i, r := range records {
			entries[i] = entry{
				ID:        r.ID,
				CreatedAt: r.CreatedAt.Format(time.RFC3339),
				Query:     r.Query,
				Answer:    r.Answer,
			}
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal history: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
