package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Scan every source once and report what was found",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Scanning roots...\n")
			for _, r := range cfg.CLIRoots {
				fmt.Fprintf(os.Stderr, "  CLI:     %s\n", r)
			}
			for _, r := range cfg.DesktopRoots {
				fmt.Fprintf(os.Stderr, "  Desktop: %s\n", r)
			}

			idx, _, err := buildIndex(context.Background(), cfg, logger)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			snap := idx.Current()
			st := snap.Stats
			fmt.Fprintf(os.Stderr, "Done in %s. %s sessions from %s files (%s partial, %s malformed lines, %s unparsable segments)\n",
				st.Duration.Round(time.Millisecond),
				humanize.Comma(int64(st.Sessions)),
				humanize.Comma(int64(st.Scanned)),
				humanize.Comma(int64(st.Partial)),
				humanize.Comma(int64(st.MalformedLines)),
				humanize.Comma(int64(st.UnparsableSegments)),
			)
			for _, w := range st.Warnings {
				fmt.Fprintf(os.Stderr, "  warning: %v\n", w)
			}
			return nil
		},
	}
}
