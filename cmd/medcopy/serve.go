package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nevindra/medcopy/internal/config"
	"github.com/nevindra/medcopy/internal/web"
	"github.com/nevindra/medcopy/relay"
)

func runServe(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "config file (default $MEDCOPY_CONFIG or medcopy.toml)")
	addr := fs.String("addr", "", "listen address (overrides config)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := newStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	relayURL := cfg.Relay.URL
	if relayURL == "" {
		relayURL = localURL(cfg.Server.Addr) + relay.DefaultPath
	}

	// Runs outlive the request that started them; they are cancelled only
	// on shutdown.
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	app := web.New(st.completer(relayURL, logger),
		web.WithRelay(relay.DefaultPath, st.relay),
		web.WithBatchOptions(st.batchOptions(cfg.Batch.Concurrency)...),
		web.WithMaxRuns(cfg.Batch.MaxRuns),
		web.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		web.WithBaseContext(runCtx),
		web.WithLogger(logger))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "relay", relayURL, "configured", st.relay.Configured())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}

	cancelRuns()
	app.Wait()
	logger.Info("stopped")
	return nil
}
