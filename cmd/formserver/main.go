// Command formserver runs the HTTP adapter over the cognitive model
// execution engine (spec §6 "HTTP surface"; grounded on the pack's
// cmd/server/main.go graceful-shutdown shape).
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cogflow/internal/customnode"
	"cogflow/internal/expreval"
	"cogflow/internal/infrastructure/api/rest"
	"cogflow/internal/infrastructure/config"
	"cogflow/internal/infrastructure/logger"
	"cogflow/internal/nodeeval"
	"cogflow/internal/notifier"
	"cogflow/internal/platform"
)

func main() {
	port := flag.String("port", "", "server port (overrides config)")
	flag.Parse()

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}

	log := logger.Setup(cfg.LogLevel, "formserver")
	log.Info("starting cogflow http server", "version", "1.0.0", "port", cfg.Port)

	eval := nodeeval.New(expreval.New(), customnode.NewRegistry().Evaluators())
	p := platform.New(eval).WithNotifier(notifier.NewLog())

	srv := rest.NewServer(p, log)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exited gracefully")
}
