package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-viewer/internal/config"
	"github.com/Zuo-Peng/ai-session-viewer/internal/index"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/scan"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify roots, scan files, and show export stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			path, _ := config.DefaultPath()
			fmt.Printf("Config: %s\n", path)

			// check roots
			fmt.Println("\n=== Roots ===")
			for _, r := range cfg.CLIRoots {
				checkDir("CLI", r)
			}
			for _, r := range cfg.DesktopRoots {
				checkDir("Desktop", r)
			}
			src := sourcesFrom(cfg)
			if err := index.Validate(src.Roots); err != nil {
				fmt.Printf("  %v\n", err)
			}

			// scan file counts
			fmt.Println("\n=== File Scan ===")
			res := scan.ScanRoots(src.Roots)
			var cliCount, deskCount, oversized int
			var cliBytes, deskBytes int64
			for _, f := range res.Files {
				if f.Kind == parse.BinaryStore {
					deskCount++
					deskBytes += f.Size
					if f.Size > cfg.MaxBinaryBytes {
						oversized++
					}
				} else {
					cliCount++
					cliBytes += f.Size
				}
			}
			fmt.Printf("  CLI JSONL files:     %d (%s)\n", cliCount, humanize.Bytes(uint64(cliBytes)))
			fmt.Printf("  Desktop store files: %d (%s)\n", deskCount, humanize.Bytes(uint64(deskBytes)))
			if oversized > 0 {
				fmt.Printf("  %d desktop files exceed %s and will be sampled\n", oversized, humanize.Bytes(uint64(cfg.MaxBinaryBytes)))
			}
			if len(res.Files) > 0 {
				fmt.Printf("  Newest file: %s (%s)\n", res.Files[0].Path, humanize.Time(res.Files[0].Mtime))
			}
			for _, w := range res.Warnings {
				fmt.Printf("  warning: %v\n", w)
			}

			// check export DB
			fmt.Println("\n=== Export Database ===")
			fmt.Printf("  Path: %s\n", cfg.ExportPath)
			info, err := os.Stat(cfg.ExportPath)
			if os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (run 'aisv export' to create it)")
				return nil
			} else if err != nil {
				fmt.Printf("  Status: %v\n", err)
				return nil
			}

			db, err := index.OpenDB(cfg.ExportPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			sessionCount, err := db.SessionCount()
			if err != nil {
				return fmt.Errorf("count sessions: %w", err)
			}
			messageCount, err := db.MessageCount()
			if err != nil {
				return fmt.Errorf("count messages: %w", err)
			}
			fmt.Printf("  Sessions: %s\n", humanize.Comma(int64(sessionCount)))
			fmt.Printf("  Messages: %s\n", humanize.Comma(int64(messageCount)))

			// check FTS5
			var ftsCount int
			err = db.Raw().QueryRow("SELECT COUNT(*) FROM messages_fts").Scan(&ftsCount)
			if err != nil {
				fmt.Printf("  FTS5 error: %v\n", err)
			} else if ftsCount == messageCount {
				fmt.Println("  FTS5: OK (synced)")
			} else {
				fmt.Printf("  FTS5: MISMATCH (messages=%d, fts=%d)\n", messageCount, ftsCount)
			}

			fmt.Printf("  Size: %s, written %s\n", humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
