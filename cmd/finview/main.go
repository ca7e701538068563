package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fin-processor/backend/internal/cli"
	"github.com/fin-processor/backend/internal/config"
)

func main() {
	_ = config.LoadEnvFiles()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
