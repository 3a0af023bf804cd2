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

	"golang.org/x/sync/errgroup"

	"github.com/llmbridge/llm-openai-proxy/internal/config"
	"github.com/llmbridge/llm-openai-proxy/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.DefaultFromEnv()

	flag.StringVar(&cfg.Host, "host", cfg.Host, "Bind host")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "Listen port")
	flag.StringVar(&cfg.UpstreamURL, "upstream-url", cfg.UpstreamURL, "Upstream Chat Completions base URL (empty enables echo mode)")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose upstream logging")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	srv := server.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("proxy starting",
			"addr", srv.Addr(),
			"service", cfg.ServiceName,
			"echo_mode", cfg.EchoMode(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		return 1
	}
	return 0
}
