package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
	"github.com/Zuo-Peng/ai-session-viewer/internal/tui"
)

func listCmd() *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Browse all sessions, newest first",
		Long:  `Opens a TUI panel showing every session ordered by latest message time. Type to search conversation content. When stdout is not a terminal the list is printed as TSV.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filters("")
			if err != nil {
				return err
			}

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			idx, src, err := buildIndex(context.Background(), cfg, logger)
			if err != nil {
				return err
			}

			if term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.RunList(idx, src, f)
			}
			printTSV(search.Search(idx.Current(), f))
			return nil
		},
	}

	ff.register(cmd, 0)
	return cmd
}
