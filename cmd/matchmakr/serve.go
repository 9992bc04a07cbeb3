package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"github.com/risseraka/matchmakr/api"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt.logger.Info("Using data directory", "data_dir", rt.settings.DataDir,
		"saved_search_backend", rt.settings.SavedSearchBackend)

	if len(rt.settings.Preload) > 0 {
		start := time.Now()
		if err := rt.engine.Preload(ctx, rt.settings.Preload); err != nil {
			return err
		}
		rt.logger.Info("Preloaded datasets", "datasets", rt.settings.Preload, "took", time.Since(start))
	}

	if rt.settings.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, rt.engine, rt.engine.Metrics(), rt.logger.With("component", "api"))

	server := &http.Server{
		Addr:              rt.settings.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		rt.logger.Info("Starting server", "listen", rt.settings.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	rt.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
