package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"daos-confgen/internal/cli"
	"daos-confgen/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "confgen:", exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "confgen:", err)
		os.Exit(cli.ExitFailure)
	}
}

func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	return cli.Run(ctx, cli.Env{Stdout: stdout, Stderr: stderr, Logger: newLogger(stderr)}, args)
}

// newLogger builds the CLI logger from CONFGEN_LOG_LEVEL and CONFGEN_LOG_JSON.
// The CLI stays at warn unless a level is set, and falls back to a warn text
// logger when the environment does not load.
func newLogger(stderr io.Writer) *slog.Logger {
	cfg, err := config.Load()
	if err != nil {
		logger := config.Config{LogLevel: "warn"}.Logger(stderr)
		logger.Warn("ignoring logging environment", "error", err)
		return logger
	}
	if _, ok := os.LookupEnv("CONFGEN_LOG_LEVEL"); !ok {
		cfg.LogLevel = "warn"
	}
	return cfg.Logger(stderr)
}
