package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"bookshelf/internal/handlers"
	"bookshelf/internal/logging"
	"bookshelf/internal/middleware"
	"bookshelf/internal/startup"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog API for the configured library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if listen != "" {
				cfg.Listen = listen
			}
			return runServer(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides config)")
	return cmd
}

// newHTTPHandler wires the router and the middleware chain.
func newHTTPHandler(cfg *startup.Config) http.Handler {
	h := handlers.New(cfg.LibraryDir, indexerOptions(cfg))

	router := h.Router()
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	startup.LogHTTPRoutes(router, cfg.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = cfg.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)

	return middleware.Compression(middleware.DefaultCompressionConfig())(loggedHandler)
}

func runServer(ctx context.Context, cfg *startup.Config, out io.Writer) error {
	startTime := time.Now()

	if err := startup.LogStartup(out, cfg); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           newHTTPHandler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // rebuilds can run long
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Listen:          ln.Addr().String(),
		StartupDuration: time.Since(startTime),
	})

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	startup.LogShutdownInitiated(context.Cause(ctx).Error())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	startup.LogShutdownComplete()
	return nil
}
