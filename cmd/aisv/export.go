package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-viewer/internal/index"
)

func exportCmd() *cobra.Command {
	var path, match string
	var limit int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the current index to a SQLite database with full-text search",
		Long: `Rebuilds the index and writes every session and message to SQLite
(tables sessions, messages and the FTS5 table messages_fts) for use by
external tools. With --match the export is queried afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.ExportPath
			}

			idx, _, err := buildIndex(context.Background(), cfg, logger)
			if err != nil {
				return err
			}

			db, err := index.OpenDB(path)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			snap := idx.Current()
			if err := db.WriteSnapshot(snap); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			messages, err := db.MessageCount()
			if err != nil {
				return fmt.Errorf("count messages: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Exported %s sessions, %s messages to %s\n",
				humanize.Comma(int64(snap.Len())), humanize.Comma(int64(messages)), path)

			if match == "" {
				return nil
			}
			hits, err := db.Match(match, limit)
			if err != nil {
				return err
			}
			for _, h := range hits {
				fmt.Printf("%s\t%d\t%s\t%s\n", h.SessionID, h.Seq, h.Role, colorizeSnippet(tsvField(h.Snippet)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Database path (default from config)")
	cmd.Flags().StringVar(&match, "match", "", "FTS5 query to run against the export")
	cmd.Flags().IntVar(&limit, "limit", 20, "Max --match hits")

	return cmd
}
