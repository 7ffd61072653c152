package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"fintrack/internal/api"
	"fintrack/internal/auth"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/records"
	"fintrack/internal/session"
)

// errReported marks a failure that was already shown to the user through a
// notification or the auth error message.
var errReported = errors.New("reported")

func reported(err error) error {
	return fmt.Errorf("%w: %w", errReported, err)
}

type appOptions struct {
	APIURL      string
	SessionFile string
	LogLevel    string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// app is one CLI invocation: the pages of the web front end become
// commands, navigation and notifications become printed lines.
type app struct {
	in     io.Reader
	out    io.Writer
	logger *log.Logger
	client *api.Client
	auth   *auth.Machine
	notify records.Notifier
}

func newApp(opts appOptions) (*app, error) {
	cfg := config.Load()
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	if opts.SessionFile != "" {
		cfg.SessionFile = opts.SessionFile
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}

	logger := cli.SetupLogger(cfg.LogLevel, opts.Stderr)
	a := &app{
		in:     opts.Stdin,
		out:    opts.Stdout,
		logger: logger,
		client: api.NewFromConfig(cfg, logger),
	}
	a.notify = records.NotifierFunc(func(n records.Notification) {
		fmt.Fprintf(a.out, "[%s] %s\n", n.Level, n.Message)
	})
	nav := auth.NavigatorFunc(func(v auth.View) {
		fmt.Fprintf(a.out, "-> %s\n", v)
	})
	a.auth = auth.New(session.NewFileStore(cfg.SessionFile, logger), a.client,
		auth.WithNavigator(nav),
		auth.WithLogger(logger))
	return a, nil
}

func (a *app) recordOptions() []records.Option {
	return []records.Option{records.WithNotifier(a.notify), records.WithLogger(a.logger)}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args, false)
	case "signup":
		return a.login(ctx, args, true)
	case "logout":
		return a.auth.Logout()
	case "whoami":
		return a.whoami()
	case "dashboard":
		return a.dashboard(ctx)
	case "income":
		return a.income(ctx, args)
	case "expense":
		return a.expense(ctx, args)
	case "category":
		return a.category(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// requireLogin prints the redirect a protected page would perform.
func (a *app) requireLogin() error {
	if _, ok := a.auth.OwnerID(); !ok {
		fmt.Fprintf(a.out, "-> %s\n", auth.ViewLogin)
		fmt.Fprintln(a.out, "Please login first")
		return errReported
	}
	return nil
}

func (a *app) promptPassword() (string, error) {
	fmt.Fprint(a.out, "Password: ")
	defer fmt.Fprintln(a.out)
	return readPassword(a.in)
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
