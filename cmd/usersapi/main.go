// Package main is the entrypoint for the usersapi command line client.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/authlink/usersapi/internal/account"
	"github.com/authlink/usersapi/internal/config"
	"github.com/authlink/usersapi/internal/management"
	"github.com/authlink/usersapi/internal/metrics"
	"github.com/authlink/usersapi/internal/request"
)

// ErrMissingToken is returned when a command needs USERSAPI_TOKEN.
var ErrMissingToken = errors.New("USERSAPI_TOKEN is required")

const usage = `usage: usersapi <command> [flags]

commands:
  profile          print the user profile
  update-metadata  merge --set key=value pairs into user_metadata
  link             link the identity behind --secondary-token
  unlink           unlink --provider/--secondary-user-id
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	// Initialize logger
	logger := initLogger(cfg, stderr)

	opts := &Options{}
	flags := newFlagSet(args[0], stderr)
	opts.AddFlags(flags)
	cmd.addFlags(flags)
	if err := flags.Parse(args[1:]); err != nil {
		return 2
	}

	if !cfg.HasToken() {
		logger.Error("missing management token", "error", ErrMissingToken)
		return 1
	}

	acct, err := account.FromConfig(cfg, logger)
	if err != nil {
		logger.Error("invalid account configuration", "error", err)
		return 1
	}
	recorder := metrics.NewInMemory()
	acct.SetMetrics(recorder)

	env := &environment{
		opts:   opts,
		token:  cfg.Token,
		logger: logger,
	}
	var clientOpts []management.Option
	clientOpts = append(clientOpts, management.WithLogger(logger))
	if opts.Async {
		env.looper = request.NewLooper()
		clientOpts = append(clientOpts, management.WithThreadSwitcher(request.LooperThreadSwitcher(env.looper)))
	}
	env.client = management.NewUsersAPIClient(acct, cfg.Token, clientOpts...)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	result, err := cmd.run(ctx, env)
	if err != nil {
		logger.Error("command failed",
			"command", args[0],
			"error", sanitizeError(err, cfg.Token),
		)
		return 1
	}

	if err := writeJSON(stdout, result, opts.Pretty); err != nil {
		logger.Error("failed to write output", "error", err)
		return 1
	}

	snap := recorder.Snapshot()
	logger.Debug("command finished",
		"command", args[0],
		"requests", snap.RequestDurationCount,
		"async", opts.Async,
	)
	return 0
}

// initLogger initializes the slog logger based on configuration.
// Logs go to stderr so stdout carries only the command result.
func initLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// sanitizeError removes secrets from an error message.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		msg = strings.ReplaceAll(msg, secret, "[redacted]")
	}
	return msg
}
