package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/afsharalex/PaperShelf/internal/config"
	"github.com/afsharalex/PaperShelf/internal/gateway"
	"github.com/afsharalex/PaperShelf/internal/history"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "papershelf",
	Short: "Upload academic papers and ask questions answered from their content",
	Long: `papershelf is a client for a local paper Q&A service. Upload PDF
papers, then ask questions answered from their content with source
passages. Recent queries are kept in a local history.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(webCmd)
	rootCmd.AddCommand(mcpCmd)
}

// newGateway builds a gateway client from the loaded configuration.
func newGateway() (*gateway.Client, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	client := gateway.NewClient(cfg.Gateway.BaseURL, gateway.WithTimeout(cfg.Gateway.TimeoutDuration()))
	return client, cfg, nil
}

// openHistory opens the local history store at the configured data dir.
func openHistory(cfg config.Config) (*history.Store, error) {
	store, err := history.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	return store, nil
}
