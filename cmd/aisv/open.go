package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-viewer/internal/open"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
)

func openCmd() *cobra.Command {
	var hit int

	cmd := &cobra.Command{
		Use:   "open <id>",
		Short: "Open the session's source file in $EDITOR at the hit line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			idx, _, err := buildIndex(context.Background(), cfg, logger)
			if err != nil {
				return err
			}

			sess, err := search.GetSession(idx.Current(), args[0])
			if err != nil {
				return err
			}
			return open.Session(sess, hit)
		},
	}

	cmd.Flags().IntVar(&hit, "hit", -1, "Message index to jump to")

	return cmd
}
