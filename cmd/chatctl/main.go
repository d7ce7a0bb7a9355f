package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
