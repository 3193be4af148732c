package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/afsharalex/PaperShelf/internal/mcpserver"
	"github.com/afsharalex/PaperShelf/internal/query"
	"github.com/afsharalex/PaperShelf/internal/uploader"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Run an MCP server exposing the paper library to MCP clients.

Tools: ask_papers, upload_paper, list_sessions.
Resources: papershelf://history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

func runMCP() error {
	client, cfg, err := newGateway()
	if err != nil {
		return err
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	mcpSrv := mcpserver.New(mcpserver.Deps{
		Queries:  query.New(client, store, cfg.Query.TopK),
		Uploads:  uploader.New(client),
		Sessions: client,
		History:  store,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stdioSrv := server.NewStdioServer(mcpSrv)
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
