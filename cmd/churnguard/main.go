// Command churnguard runs the churn-prediction and personalized-offer
// platform as a standalone HTTP service: load configuration, wire the
// runtime, serve the API, and shut down gracefully on interrupt --
// generalizing the teacher's Plugin.OnActivate/OnDeactivate lifecycle to a
// process entrypoint instead of a plugin host callback.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quickmart/churnguard/internal/api"
	"github.com/quickmart/churnguard/internal/config"
	"github.com/quickmart/churnguard/internal/logging"
	"github.com/quickmart/churnguard/internal/runtime"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	logger := logging.NewStdLogger(cfg.LogLevel == "debug")

	if err := cfg.Validate(); err != nil {
		logger.Error("churnguard: invalid configuration", "error", err.Error())
		return 1
	}

	rt, err := runtime.New(cfg, logger, nil)
	if err != nil {
		// Model load failure is fatal at startup per the ModelMissing error
		// kind: there is no degraded mode for a service with no scorer.
		logger.Error("churnguard: failed to build runtime", "error", err.Error())
		return 1
	}

	handler := api.NewServer(rt).Router()
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("churnguard: http server shutdown", "error", err.Error())
		}
		close(idleConnsClosed)
	}()

	logger.Info("churnguard: listening", "addr", cfg.Addr())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("churnguard: listen failed", "error", err.Error())
		return 1
	}

	<-idleConnsClosed
	logger.Info("churnguard: stopped")
	return 0
}
