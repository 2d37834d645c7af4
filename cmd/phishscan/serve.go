package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stoik/phish-verdict/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			go a.feed.Run(ctx)

			srv := &http.Server{
				Addr:              a.cfg.ListenAddr,
				Handler:           httpapi.NewServer(a.service, a.feed, a.logger),
				ReadHeaderTimeout: 10 * time.Second,
				WriteTimeout:      a.cfg.ScanTimeout + 15*time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "addr", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
