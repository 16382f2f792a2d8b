package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ougirez/databaker/internal/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	logger.Sync()
	if err != nil {
		logger.Fatal(ctx, err)
	}
}
