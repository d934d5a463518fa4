package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"flashdl/internal/api"
	"flashdl/internal/config"
	"flashdl/internal/log"
)

const shutdownTimeout = 30 * time.Second

var (
	flagListen    string
	flagRateLimit int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Args:  cobra.NoArgs,
	RunE:  serveRun,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (default :5000)")
	serveCmd.Flags().IntVar(&flagRateLimit, "rate-limit", -1, "Requests per minute per IP on /extract, 0 disables")
}

// applyServeFlags merges serve-only flags into c.
func applyServeFlags(c *config.Config) {
	if flagListen != "" {
		c.Listen = flagListen
	}
	if flagRateLimit >= 0 {
		c.RateLimit = flagRateLimit
	}
}

func serveRun(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("serve")

	if err := os.MkdirAll(cfg.TempDir, 0o700); err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}

	a := newApp(cfg)
	defer a.proxy.Close()

	logger.Info().
		Str("listen", cfg.Listen).
		Bool("merge_available", a.caps.MergeAvailable).
		Bool("cookies", a.caps.CookieFile != "").
		Str("temp_dir", cfg.TempDir).
		Str("version", Version).
		Msg("starting flashdl")
	if !a.caps.MergeAvailable {
		logger.Warn().Msg("yt-dlp or ffmpeg not found, HD merge options will be refused")
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.New(cfg, a.caps, a.resolver, a.proxy).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening on %s: %w", cfg.Listen, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
