package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-viewer/internal/api"
)

func serveCmd() *cobra.Command {
	var listen string
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session index as a local JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = cfg.Listen
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			idx, src, err := buildIndex(ctx, cfg, logger)
			if err != nil {
				return err
			}

			if every > 0 {
				go func() {
					t := time.NewTicker(every)
					defer t.Stop()
					for {
						select {
						case <-ctx.Done():
							return
						case <-t.C:
							if _, err := idx.Rebuild(ctx, src); err != nil && ctx.Err() == nil {
								logger.Warn("periodic rebuild failed", "err", err)
							}
						}
					}
				}()
			}

			return api.NewServer(idx, src, logger).Run(ctx, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config)")
	cmd.Flags().DurationVar(&every, "rebuild-every", 0, "Rebuild the index periodically (0 = only on POST /api/rebuild)")

	return cmd
}
