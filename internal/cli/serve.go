package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/checklist/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and websocket change feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				app.cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, app, net.JoinHostPort("", app.cfg.Port))
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (default $CHECKLIST_PORT or 8080)")
	return cmd
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, app *App, addr string) error {
	db, err := openDB(ctx, app)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(db, app.cfg, app.logger)
	if err := srv.List().Refresh(ctx); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     srv.Router(),
		ReadTimeout: 5 * time.Second,
		// Imports may take up to the import timeout before answering.
		WriteTimeout: app.cfg.ImportTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("server starting", "addr", addr, "db", app.cfg.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		srv.RateLimiter().Run(gctx, time.Minute)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
