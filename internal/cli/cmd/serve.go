package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"funlight/internal/api"
	"funlight/internal/config"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Serve the JSON/SSE API on a local address",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := config.Load()
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				s.ServeAddr = addr
			}
			if !cmd.Flags().Changed("log-format") && s.LogFormat == "text" {
				s.LogFormat = "json"
			}
			logger, err := newLogger(cmd.OutOrStdout(), s)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			setDefaultLogger(logger)

			a := newApp(s, logger)
			defer a.Close()

			ctx := cmd.Context()
			sess := a.newSession(ctx)
			var hist api.Lister
			if a.history != nil {
				hist = a.history
			}
			h := api.NewHandler(sess, hist, s.OutDir, logger)
			srv := &http.Server{
				Addr:              s.ServeAddr,
				Handler:           api.NewRouter(h, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server starting", "addr", s.ServeAddr, "downloader", a.dlPath)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("server error: %w", err)}
				}
			case <-ctx.Done():
				logger.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("server shutdown error", "error", err)
				}
			}
			sess.Wait()
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default from config, 127.0.0.1:8765)")
	return cmd
}
