// Command keystored serves a keystore file over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/celerix-dev/celerix-keystore/internal/api"
	"github.com/celerix-dev/celerix-keystore/internal/config"
	"github.com/celerix-dev/celerix-keystore/internal/engine"
	"github.com/celerix-dev/celerix-keystore/internal/logging"
	"github.com/celerix-dev/celerix-keystore/pkg/sdk"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flagSet := pflag.NewFlagSet("keystored", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to keystored.yaml")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	mode, err := cfg.Mode()
	if err != nil {
		return err
	}
	store := engine.NewFileStore(cfg.Keystore.Path, cfg.Password(),
		engine.WithLogger(logger),
		engine.WithFileMode(mode),
	)
	data, err := store.Read()
	if err != nil {
		return fmt.Errorf("loading keystore: %w", err)
	}
	logger.Info("keystore loaded",
		"path", store.Path(),
		"format", store.Format(),
		"entries", len(data),
		"encrypted", store.Encrypted(),
	)
	if cfg.Token == "" {
		logger.Warn("no token configured, the API is unauthenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newRouter(store, cfg.Token, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, logger)
}

func newRouter(store sdk.Keystore, token string, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	h := &api.Handler{Store: store, Token: token, Logger: logger}
	h.Register(r)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API route not found"})
	})
	return r
}

// requestLogger logs one line per request. Paths carry key names but never
// values.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("keystored listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.Info("keystored stopped")
	return nil
}
