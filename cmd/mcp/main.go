package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/client"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/config"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/mcp"
)

var version = "dev"

func main() {
	cfg := config.LoadClient()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(client.New(cfg.BridgeServerURL, cfg.APIKey), os.Stdout, version)
	if err := server.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "mcp server error: %s\n", err)
		stop()
		os.Exit(1)
	}
}
