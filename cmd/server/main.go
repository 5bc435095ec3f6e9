package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"swingref/config"
	"swingref/wire"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadInfraFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	app, err := wire.New(cfg)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}
	defer app.Close()

	app.StartReplayDriver()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      app.Router(),
		ReadTimeout:  time.Duration(cfg.HTTPReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTPWriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.HTTPIdleTimeout) * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupGracefulShutdown(app, cancel)

	go func() {
		app.Logger().Info("starting HTTP server", zap.Int("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger().Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	printStartupInfo(cfg.HTTPPort)

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTPShutdownTimeout)*time.Second)
	defer shutdownCancel()

	app.Logger().Info("shutting down HTTP server gracefully")
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger().Error("error during server shutdown", zap.Error(err))
	} else {
		app.Logger().Info("HTTP server stopped gracefully")
	}
}

func setupGracefulShutdown(app *wire.App, cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		app.Logger().Info("received shutdown signal, shutting down gracefully")
		app.StopReplayDriver()
		cancel()
	}()
}

func printStartupInfo(httpPort int) {
	fmt.Printf("\nExample usage:\n")
	fmt.Printf("  curl -X POST http://localhost:%d/sessions -d '{\"base_bar_index\":0}'\n", httpPort)
	fmt.Printf("  curl http://localhost:%d/sessions/<handle>/reference-state\n", httpPort)
	fmt.Printf("\nHTTP server listening on :%d\n", httpPort)
}
