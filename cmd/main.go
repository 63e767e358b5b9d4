package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"polychat/internal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a server failure.
// Deferred cleanups run before the exit code reaches main.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Components
	app, err := internal.NewApp(log, config)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = app.Close() }()

	// 3. Context, signals & supervision
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervised := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(supervised)
	}()

	// 4. HTTP: websocket endpoint and admin API on the same listener
	address := net.JoinHostPort(config.Host, fmt.Sprint(config.Port))
	server := &http.Server{Addr: address, Handler: app.Handler(ctx), ReadHeaderTimeout: 10 * time.Second}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting chat server", "address", address, "provider", config.TranslationProvider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 5. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		stop()
		<-supervised
		return exitRuntime, err
	}

	// 6. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	<-supervised
	log.Info("Program stopped cleanly")
	return exitOK, nil
}
