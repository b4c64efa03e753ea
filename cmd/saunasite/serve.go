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

	"github.com/eringen/saunasite"
	"github.com/eringen/saunasite/logger"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the crawler endpoints and the admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app := saunasite.New(appConfig.site(),
			saunasite.WithLogger(log),
			saunasite.WithStaticDir(appConfig.StaticDir),
		)
		defer app.Close()
		if err := app.Init(ctx); err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("listening", logger.String("addr", app.Config.Addr), logger.String("url", app.Config.URL))
			if err := app.Echo.Start(app.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
