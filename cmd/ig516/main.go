package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/516hackers/osint516/internal/app"
	"github.com/516hackers/osint516/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(app.Run(ctx, cli.Instagram, os.Args[1:], os.Stdout, os.Stderr))
}
