package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"procurement-desk/internal/adapters/cli"
	"procurement-desk/internal/adapters/repl"
	"procurement-desk/internal/config"
	"procurement-desk/internal/console"
	"procurement-desk/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// Console output goes to stdout; keep logs on stderr and quiet by default.
	log := obs.NewLoggerTo(os.Stderr, "console", valueOr(os.Getenv("LOG_LEVEL"), "warn"))

	ctx := context.Background()
	client := console.NewClient(cfg.APIURL, cfg.APIToken, log)

	if len(os.Args) > 1 {
		if err := cli.Run(ctx, client, os.Args[1:], os.Stdin, os.Stdout, cfg.CreatedBy); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	repl.Run(ctx, client, bufio.NewReader(os.Stdin), os.Stdout, cfg.CreatedBy, log)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
