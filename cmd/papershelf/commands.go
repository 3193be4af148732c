package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/afsharalex/PaperShelf/internal/config"
	"github.com/afsharalex/PaperShelf/internal/pdfinfo"
	"github.com/afsharalex/PaperShelf/internal/query"
	"github.com/afsharalex/PaperShelf/internal/uploader"
)

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>...",
	Short: "Upload one or more PDF papers",
	Long: `Upload one or more PDF papers to the service.

Files are uploaded one at a time in the order given. A failed upload
does not stop the rest of the batch.

Examples:
  papershelf upload paper.pdf
  papershelf upload a.pdf b.pdf c.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newGateway()
		if err != nil {
			return err
		}

		batch, err := uploader.New(client).Submit(cmd.Context(), uploader.PathHandles(args))
		if err != nil {
			return err
		}

		report := uploader.Describe(batch)
		fmt.Println(colorize(colorBold, report.Title))
		for _, line := range report.Lines {
			fmt.Println(line)
		}

		if report.Failed {
			return fmt.Errorf("%d of %d uploads failed", len(batch.Outcomes)-batch.SuccessCount(), len(batch.Outcomes))
		}
		return nil
	},
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question answered from the uploaded papers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		topK, _ := cmd.Flags().GetInt("top-k")

		client, cfg, err := newGateway()
		if err != nil {
			return err
		}
		store, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if topK <= 0 {
			topK = cfg.Query.TopK
		}

		rec, err := query.New(client, store, topK).Ask(cmd.Context(), question)
		if err != nil {
			return err
		}

		fmt.Println(colorize(colorBold, "Response:"))
		fmt.Println(rec.Answer)

		if len(rec.Documents) > 0 {
			fmt.Println()
			fmt.Println(colorize(colorBold, "Sources:"))
			for i, d := range rec.Documents {
				title := d.Metadata.Title
				if title == "" {
					title = "Untitled"
				}
				fmt.Printf("\n%s %s\n", colorize(colorCyan, fmt.Sprintf("[%d]", i+1)), title)
				fmt.Printf("  %s\n", truncate(d.Text, 500))
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().Int("top-k", 0, "number of passages to retrieve (default from config)")
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the local query history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent queries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		records := store.Load()
		if len(records) == 0 {
			fmt.Println("No queries recorded.")
			return nil
		}

		for _, r := range records {
			// IDs are not trusted to be UUIDs: an externally edited
			// database still lists, it never crashes the command.
			fmt.Printf("%s  %s  %s\n",
				colorize(colorCyan, truncate(r.ID, 8)),
				r.CreatedAt.Format("2006-01-02 15:04"),
				truncate(r.Query, 80),
			)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a recorded query with its answer and sources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, r := range store.Load() {
			if r.ID == args[0] || strings.HasPrefix(r.ID, args[0]) {
				fmt.Println(colorize(colorBold, "Query:"))
				fmt.Println(r.Query)
				fmt.Println()
				fmt.Println(colorize(colorBold, "Answer:"))
				fmt.Println(r.Answer)
				for i, d := range r.Documents {
					title := d.Metadata.Title
					if title == "" {
						title = "Untitled"
					}
					fmt.Printf("\n%s %s\n", colorize(colorCyan, fmt.Sprintf("[%d]", i+1)), title)
					fmt.Printf("  %s\n", d.Text)
				}
				return nil
			}
		}
		return fmt.Errorf("no recorded query with id %s", args[0])
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the local query history",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete the local query history. Use --confirm to proceed.")
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(); err != nil {
			return err
		}
		printSuccess("History cleared")
		return nil
	},
}

func init() {
	historyClearCmd.Flags().Bool("confirm", false, "confirm history deletion")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
}

// --- sessions ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse chat sessions stored on the service",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newGateway()
		if err != nil {
			return err
		}

		sessions, err := client.ListSessions(cmd.Context())
		if err != nil {
			return err
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		for _, s := range sessions {
			fmt.Printf("%s  %s  %s\n",
				colorize(colorCyan, truncate(s.SessionID, 8)),
				s.CreatedAt,
				client.SessionURL(s.SessionID),
			)
		}
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show service statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newGateway()
		if err != nil {
			return err
		}

		stats, err := client.GetStats(cmd.Context())
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(stats))
		for k := range stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			printStatus(k, "%v", stats[k])
		}
		return nil
	},
}

// --- inspect ---

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.pdf>...",
	Short: "Show metadata of local PDFs without uploading them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var failed int
		for _, path := range args {
			if len(args) > 1 {
				fmt.Println(colorize(colorBold, path))
			}
			info, err := pdfinfo.Inspect(path)
			if err != nil {
				printError("%v", err)
				failed++
				continue
			}

			title := info.Title
			if title == "" {
				title = "Unknown"
			}
			author := info.Author
			if author == "" {
				author = "Unknown"
			}
			printStatus("Title", "%s", title)
			printStatus("Author", "%s", author)
			printStatus("Pages", "%d", info.Pages)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files could not be read", failed, len(args))
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
