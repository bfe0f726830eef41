package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/katalog/internal/app"
	"github.com/erazemk/katalog/internal/web"
)

func newServeCmd(rt *Runtime) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web admin UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				if changed(cmd, "addr") {
					a.Config.ListenAddr = addr
				}

				handler, err := web.NewRouter(a, a.Logger)
				if err != nil {
					return err
				}

				if a.Auth.Guard(ctx) {
					a.Start(ctx)
				}

				server := &http.Server{
					Addr:              a.Config.ListenAddr,
					Handler:           handler,
					ReadHeaderTimeout: 10 * time.Second,
					ReadTimeout:       30 * time.Second,
					WriteTimeout:      60 * time.Second,
					IdleTimeout:       120 * time.Second,
				}

				// Graceful shutdown when the command context ends.
				go func() {
					<-ctx.Done()
					a.Logger.Info("shutdown signal received")

					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()

					if err := server.Shutdown(shutdownCtx); err != nil {
						a.Logger.Error("server forced to shutdown", "error", err)
					}
				}()

				a.Logger.Info("server started", "addr", server.Addr, "api", a.Config.APIURL)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.Logger.Error("server error", "error", err)
					return err
				}

				a.Logger.Info("server stopped")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides KATALOG_ADDR)")
	return cmd
}
