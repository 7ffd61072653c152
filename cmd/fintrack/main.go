package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"fintrack/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			os.Exit(0)
		case errors.Is(err, errReported):
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

const usage = `Usage: fintrack [flags] <command> [args]

Commands:
  login     [-username U] [-password P]
  signup    [-username U] [-password P]
  logout
  whoami
  dashboard
  income    list [-page N] | add -amount A | update -id ID -amount A | delete -id ID
  expense   list [-page N] | add -amount A [-category ID] | update -id ID -amount A [-category ID] | delete -id ID
  category  list [-page N] | add -name N | update -id ID -name N | delete -id ID

Flags:
`

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fintrack", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	apiURL := fs.String("api-url", "", "Data API base URL (default $FINTRACK_API_URL)")
	sessionFile := fs.String("session-file", "", "Session file (default $FINTRACK_SESSION_FILE)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error (default $LOG_LEVEL)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	a, err := newApp(appOptions{
		APIURL:      *apiURL,
		SessionFile: *sessionFile,
		LogLevel:    *logLevel,
		Stdin:       stdin,
		Stdout:      stdout,
		Stderr:      stderr,
	})
	if err != nil {
		return err
	}
	return a.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
}
