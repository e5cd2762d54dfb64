package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/ai-session-viewer/internal/render"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
)

func showCmd() *cobra.Command {
	var opts render.Options

	cmd := &cobra.Command{
		Use:     "show <id>",
		Aliases: []string{"preview"},
		Short:   "Print a conversation with context around a hit",
		Args:    cobra.ExactArgs(1),
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

			if opts.Width == 0 && term.IsTerminal(int(os.Stdout.Fd())) {
				if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
					opts.Width = w
				}
			}
			out, _ := render.Session(sess, opts)
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Hit, "hit", -1, "Message index to highlight")
	cmd.Flags().IntVar(&opts.Context, "context", 10, "Messages before/after hit to show (-1 = all)")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "Wrap width (0 = terminal width, or no wrap when piped)")
	cmd.Flags().StringVar(&opts.Query, "query", "", "Search query for keyword highlighting")
	cmd.Flags().BoolVar(&opts.OnlyUser, "only-user", false, "Show only user messages")
	cmd.Flags().BoolVar(&opts.Reverse, "reverse", false, "Newest message first")

	return cmd
}
