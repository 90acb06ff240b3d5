// Command census-server provides a REST API for census runs.
//
// Usage:
//
//	census-server [options]
//
// Options:
//
//	-port       Port to listen on (default: 8080)
//	-host       Host to bind to (default: localhost)
//	-config     YAML configuration with the server defaults
//	-data       Calibration data directory
//	-db         Search database (default <data>/seqs)
//	-rapsearch  Homology search executable
//	-threads    Threads per search
//	-timeout    Bound on each search
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/aria-lang/census-go/api/handlers"
	"github.com/aria-lang/census-go/api/middleware"
	"github.com/aria-lang/census-go/pkg/census"
)

func newRouter(api *handlers.API, logger *slog.Logger, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(timeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", api.Routes)
	return r
}

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	host := flag.String("host", "localhost", "Host to bind to")
	configFile := flag.String("config", "", "YAML configuration with the server defaults")
	dataDir := flag.String("data", "", "Calibration data directory")
	db := flag.String("db", "", "Search database (default <data>/seqs)")
	binary := flag.String("rapsearch", "", "Homology search executable")
	threads := flag.Int("threads", 0, "Threads per search")
	timeout := flag.Duration("timeout", 0, "Bound on each search")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	defaults := census.DefaultConfig()
	if *configFile != "" {
		var err error
		if defaults, err = census.LoadConfig(*configFile); err != nil {
			logger.Error("loading configuration", "error", err)
			os.Exit(1)
		}
	}
	if *dataDir != "" {
		defaults.DataDir = *dataDir
	}
	if *db != "" {
		defaults.Database = *db
	}
	if *binary != "" {
		defaults.SearchBinary = *binary
	}
	if *threads > 0 {
		defaults.Threads = *threads
	}
	if *timeout > 0 {
		defaults.SearchTimeout = *timeout
	}
	if defaults.Database == "" && defaults.HitsFile == "" && defaults.DataDir != "" {
		defaults.Database = filepath.Join(defaults.DataDir, "seqs")
	}

	if _, err := census.ReadLengths(defaults.DataDir); err != nil {
		logger.Error("calibration data unavailable", "data_dir", defaults.DataDir, "error", err)
		os.Exit(1)
	}

	// Estimates run the whole pipeline; the per-request bound follows the
	// search timeout when one is set.
	requestTimeout := 10 * time.Minute
	if defaults.SearchTimeout > 0 {
		requestTimeout = defaults.SearchTimeout + time.Minute
	}

	api := &handlers.API{Defaults: defaults, Logger: logger}
	addr := fmt.Sprintf("%s:%d", *host, *port)
	server := &http.Server{
		Addr:         addr,
		Handler:      newRouter(api, logger, requestTimeout),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("server is shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("could not gracefully shut down", "error", err)
			os.Exit(1)
		}
		close(done)
	}()

	logger.Info("census API server starting", "addr", "http://"+addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("could not listen", "addr", addr, "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("server stopped")
}
