package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/afsharalex/PaperShelf/internal/query"
	"github.com/afsharalex/PaperShelf/internal/uploader"
	"github.com/afsharalex/PaperShelf/internal/web"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the browser UI (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		return runWeb(port)
	},
}

func init() {
	webCmd.Flags().Int("port", 0, "port to listen on (default from config)")
}

func runWeb(port int) error {
	fmt.Fprintf(os.Stderr, "papershelf version %s\n", version)

	client, cfg, err := newGateway()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing history store: %v\n", err)
		}
	}()

	srv := web.New(
		client,
		uploader.New(client),
		query.New(client, store, cfg.Query.TopK),
		store,
	)

	if port <= 0 {
		port = cfg.Web.Port
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "papershelf web UI on http://%s\n", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
