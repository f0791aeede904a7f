package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	funlightcmd "funlight/internal/cli/cmd"
)

func main() {
	os.Exit(run())
}

// run keeps the signal context alive until the command returns, so its
// cleanup runs before the process exits.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return funlightcmd.Run(ctx, os.Args[1:], os.Stderr)
}
