// Command reportkit-stub serves the in-memory emulation of the content API
// and the report-generation backends, for local development of the CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/me/reportkit/internal/logging"
	"github.com/me/reportkit/internal/stub"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	secret := flag.String("secret", "reportkit-dev-secret", "JWT signing secret")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "Log format (text, json)")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	flag.Parse()

	if *debug {
		*logLevel = "debug"
	}
	logger := logging.NewLogger(logging.ParseLevel(*logLevel), *logFormat)

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: stub.New(*secret, logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("stub starting", "addr", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("stub failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("stub stopped")
}
