package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/andy/invoicer/internal/app"
	"github.com/andy/invoicer/internal/cli"
	"github.com/andy/invoicer/internal/config"
	"github.com/andy/invoicer/internal/logging"
)

func main() {
	// If the user asked for help, avoid initializing the full app (which may prompt)
	skipInit := false
	for _, a := range os.Args[1:] {
		if a == "-h" || a == "--help" || a == "help" {
			skipInit = true
			break
		}
	}

	ctx := context.Background()

	if !skipInit {
		cfg, err := config.Load(configPath(os.Args[1:]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger := logging.New(cfg.Log, os.Stderr)

		a, err := app.NewWithConfig(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize app: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()
		cli.SetApp(a)
	}

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// configPath reads --config ahead of cobra, which parses flags only after the
// app is built.
func configPath(args []string) string {
	for i, a := range args {
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
	}
	return config.DefaultConfigPath()
}
