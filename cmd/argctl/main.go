package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/charmbracelet/fang"

	"github.com/goliatone/go-argstore/internal/cli"
)

// Version is set at build time
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := fang.Execute(ctx, cli.NewRootCommand(), fang.WithVersion(Version)); err != nil {
		stop()
		os.Exit(1)
	}
}
