package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/squadracorsepolito/bytering/internal"
)

func main() {
	ctx, cancelCtx := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancelCtx()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		internal.NewLogger("cmd", "ringbench").Error("ringbench failed", err)
		cancelCtx()
		os.Exit(1)
	}
}
