package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-viewer/internal/config"
	"github.com/Zuo-Peng/ai-session-viewer/internal/extract"
	"github.com/Zuo-Peng/ai-session-viewer/internal/index"
	"github.com/Zuo-Peng/ai-session-viewer/internal/scan"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "aisv",
		Short:         "AI Session Viewer - browse Claude CLI logs and Claude Desktop stores",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config and installs the stderr logger it asks for.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func sourcesFrom(cfg *config.Config) index.Sources {
	opts := extract.DefaultOptions()
	if cfg.MaxSnippets > 0 {
		opts.MaxSnippets = cfg.MaxSnippets
	}
	opts.Fallback = cfg.DesktopTextFallback
	return index.Sources{
		Roots:          scan.Roots{Structured: cfg.CLIRoots, Binary: cfg.DesktopRoots},
		MaxBinaryBytes: cfg.MaxBinaryBytes,
		Extract:        opts,
		Budget:         cfg.RebuildBudget.Duration,
		Workers:        cfg.Workers,
	}
}

// buildIndex validates the roots and runs the first rebuild.
func buildIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*index.Index, index.Sources, error) {
	src := sourcesFrom(cfg)
	if err := index.Validate(src.Roots); err != nil {
		return nil, src, err
	}
	idx := index.New(cfg.CacheSize, logger)
	if _, err := idx.Rebuild(ctx, src); err != nil {
		return nil, src, err
	}
	return idx, src, nil
}
