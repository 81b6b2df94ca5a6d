package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/ibex-prices/internal/app"
	"github.com/samvad-hq/ibex-prices/internal/config"
	"github.com/samvad-hq/ibex-prices/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "prices fetch failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	log.InfoObj("prices client starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := app.NewRunner(cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize runner", "error", err.Error())
		return err
	}

	summaries, err := runner.Run(ctx)
	log.InfoObj("prices run finished", "run_meta", map[string]any{
		"sources_ok": len(summaries),
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
