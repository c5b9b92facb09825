package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Megamind2600/resumerocketpro/internal/bootstrap"
	"github.com/Megamind2600/resumerocketpro/internal/shared/config"
	"github.com/Megamind2600/resumerocketpro/internal/shared/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		return fmt.Errorf("bootstrap build: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, app.Close)
}

// serve runs srv until it fails or ctx is done. closeApp runs on every exit path.
func serve(ctx context.Context, srv *http.Server, closeApp func() error) error {
	defer func() {
		if cerr := closeApp(); cerr != nil {
			log.Printf("close: %v", cerr)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting API server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
		return nil
	}
}
