package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agroloop/agroloop/internal/api"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config, 127.0.0.1:8787)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local API server",
	Long: `Run the local HTTP API used by the mobile client. Expired verification
codes are removed periodically while the server runs.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = app.Config.API.Addr()
	}

	srv := api.NewServer(app)
	if app.Config.Telemetry.Metrics {
		srv.EnableMetrics()
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[serve] listening on http://%s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		return app.RunCleanup(ctx, app.Config.CleanupEvery())
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Printf("[serve] shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
