package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	serveAddr    string // listen address
	serveConfig  string // optional YAML config file
	serveCacheDB string // SQLite cache path override
)

// serveShutdownGrace bounds how long in-flight requests get to finish
// after an interrupt before the listener is torn down.
const serveShutdownGrace = 10 * time.Second

// serveCmd runs the planning engine as an HTTP service.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the load planner and router over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		fileCfg, err := loadFileConfig(serveConfig)
		if err != nil {
			logrus.Fatalf("Config load failed: %v", err)
		}
		if cmd.Flags().Changed("cache-db") {
			fileCfg.CacheDB = serveCacheDB
		}

		router, closer, err := buildRouter(fileCfg)
		if err != nil {
			logrus.Fatalf("Router setup failed: %v", err)
		}
		defer closer()

		api := newAPIServer(router, fileCfg.Planner.Normalize(), fileCfg.Routing.Normalize())
		srv := &http.Server{
			Addr:         serveAddr,
			Handler:      api.handler(),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute, // route solves can run to the solver deadline
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logrus.Infof("Listening on %s (provider %s)", serveAddr, fileCfg.Provider)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.Fatalf("Server failed: %v", err)
			}
		case <-ctx.Done():
			logrus.Info("Shutdown signal received, draining requests")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownGrace)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logrus.Warnf("Forced shutdown: %v", err)
			}
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "HTTP listen address")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "Path to YAML config file")
	serveCmd.Flags().StringVar(&serveCacheDB, "cache-db", "", "SQLite geocode/distance cache path")

	rootCmd.AddCommand(serveCmd)
}
