package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
	"github.com/Zuo-Peng/ai-session-viewer/internal/tui"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorGreen   = "\033[1;32m"
	sColorDim     = "\033[2m"
)

func colorizeSource(source parse.SourceKind) string {
	switch source {
	case parse.StructuredLog:
		return sColorBlue + "cli" + sColorReset
	case parse.BinaryStore:
		return sColorGreen + "desktop" + sColorReset
	default:
		return string(source)
	}
}

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

func tsvField(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

// filterFlags are the query filters shared by search and list.
type filterFlags struct {
	mode, path, since, until, source, role string
	limit                                  int
}

func (ff *filterFlags) register(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().StringVar(&ff.mode, "mode", "and", "Keyword combination (and/or)")
	cmd.Flags().StringVar(&ff.path, "path", "", "Project path fragment, any separator style")
	cmd.Flags().StringVar(&ff.since, "since", "", "Sessions with a message on or after date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&ff.until, "until", "", "Sessions with a message on or before date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&ff.source, "source", "", "Filter by source (cli/desktop)")
	cmd.Flags().StringVar(&ff.role, "role", "", "Filter by role (user/assistant/unknown)")
	cmd.Flags().IntVar(&ff.limit, "limit", defaultLimit, "Max results (0 = no limit)")
}

func (ff *filterFlags) filters(query string) (search.Filters, error) {
	f := search.Filters{Terms: search.ParseTerms(query), Path: ff.path, Limit: ff.limit}
	var err error
	if f.Mode, err = search.ParseMode(ff.mode); err != nil {
		return f, err
	}
	if f.Since, err = search.ParseDate(ff.since, false); err != nil {
		return f, err
	}
	if f.Until, err = search.ParseDate(ff.until, true); err != nil {
		return f, err
	}
	if f.Source, err = search.ParseSource(ff.source); err != nil {
		return f, err
	}
	if f.Role, err = search.ParseRole(ff.role); err != nil {
		return f, err
	}
	return f, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// printTSV writes one line per result. The first two fields (id, hit)
// stay plain so fzf can hand them to show/open as {1} {2}.
func printTSV(results []search.Summary) {
	for _, r := range results {
		project := r.Project
		if project == "" {
			project = "-"
		}
		fmt.Printf("%s\t%d\t%s%s%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.HitIndex,
			sColorDim, formatTime(r.LastAt), sColorReset,
			colorizeSource(r.Source),
			tsvField(project),
			tsvField(r.Summary),
			colorizeSnippet(tsvField(r.Snippet)),
		)
	}
}

func searchCmd() *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Keyword search across every session",
		Long: `Search sessions by keyword. Output is TSV for fzf integration:
  id, hitIndex, lastAt, source, project, summary, snippet

Recommended shell function (add to .zshrc):
  aisf() {
    aisv search "$*" | fzf \
      --ansi \
      --delimiter='\t' --with-nth=3.. \
      --preview 'aisv show {1} --hit {2} --context 5 --query {q}' \
      --preview-window=right:60%:wrap \
      --preview-debounce=150 \
      --bind 'enter:execute(aisv open {1} --hit {2})'
  }`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			f, err := ff.filters(query)
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

			// Interactive TUI when stdout is a terminal; TSV output for pipes
			if term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.Run(idx, src, query, f)
			}

			results := search.Search(idx.Current(), f)
			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}
			printTSV(results)
			return nil
		},
	}

	ff.register(cmd, 100)
	return cmd
}
