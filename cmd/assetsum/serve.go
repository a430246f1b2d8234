package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/assetsum/assetsum/internal/ratelimit"
	"github.com/assetsum/assetsum/internal/rest"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const limiterIdle = 10 * time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the checksum and asset index HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, closeFn, err := openManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			limiter := ratelimit.NewLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
			api := rest.NewServer(m, rest.Options{
				Root:         cfg.Scanner.Root,
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
				Limiter:      limiter,
			})

			srv := &http.Server{
				Addr:         cfg.Server.HTTPAddr,
				Handler:      api.Handler(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			go sweepLimiter(ctx, limiter)

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Msg("starting HTTP server")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func sweepLimiter(ctx context.Context, limiter *ratelimit.Limiter) {
	ticker := time.NewTicker(limiterIdle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Sweep(limiterIdle); n > 0 {
				log.Debug().Int("buckets", n).Msg("dropped idle rate limit buckets")
			}
		}
	}
}
