package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/juju/gnuflag"
	"github.com/pkg/errors"

	"daos-confgen/internal/confgen"
)

// Process exit codes.
const (
	ExitOK                    = 0
	ExitFailure               = 1
	ExitUsage                 = 2
	ExitInvalidAccessPoint    = 3
	ExitInsufficientResources = 4
	ExitNoMatchingInterfaces  = 5
	ExitNoUsableEngines       = 6
	ExitInternal              = 70
)

// ExitError carries the exit code a failure should terminate the process
// with.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Env is what a command needs from the process.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

const usage = `confgen - generate a multi-engine storage server configuration.

Usage:
  confgen generate --access-points=HOST[:PORT],... [options]
  confgen scan [options]
  confgen version

Run "confgen COMMAND --help" for the options of a command.
`

// Run dispatches args to a subcommand. Every non-nil error is an
// *ExitError.
func Run(ctx context.Context, env Env, args []string) error {
	if env.Logger == nil {
		env.Logger = slog.New(slog.NewTextHandler(env.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	if len(args) == 0 {
		fmt.Fprint(env.Stderr, usage)
		return &ExitError{Code: ExitUsage, Message: "no command given"}
	}

	var err error
	switch args[0] {
	case "generate", "gen":
		err = runGenerate(ctx, env, args[1:])
	case "scan":
		err = runScan(ctx, env, args[1:])
	case "version":
		fmt.Fprintln(env.Stdout, versionString())
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(env.Stdout, usage)
		return nil
	default:
		fmt.Fprint(env.Stderr, usage)
		return &ExitError{Code: ExitUsage, Message: fmt.Sprintf("unknown command %q", args[0])}
	}
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return &ExitError{Code: ExitCode(err), Message: err.Error()}
}

// ExitCode maps a generation or scan failure to its process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, confgen.ErrInvalidAccessPoint):
		return ExitInvalidAccessPoint
	case errors.Is(err, confgen.ErrInsufficientResources):
		return ExitInsufficientResources
	case errors.Is(err, confgen.ErrNoMatchingInterfaces):
		return ExitNoMatchingInterfaces
	case errors.Is(err, confgen.ErrNoUsableEngines):
		return ExitNoUsableEngines
	case errors.Is(err, confgen.ErrInternal):
		return ExitInternal
	default:
		return ExitFailure
	}
}

// parseFlags parses args into fs. A help request returns done with a nil
// error.
func parseFlags(fs *gnuflag.FlagSet, args []string) (done bool, err error) {
	if err := fs.Parse(true, args); err != nil {
		if errors.Is(err, gnuflag.ErrHelp) {
			return true, nil
		}
		return false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	if fs.NArg() > 0 {
		return false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("unexpected arguments %q", fs.Args())}
	}
	return false, nil
}
