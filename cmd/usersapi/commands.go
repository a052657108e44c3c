package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/authlink/usersapi/internal/management"
	"github.com/authlink/usersapi/internal/request"
	"github.com/authlink/usersapi/internal/token"
)

// Command errors.
var (
	ErrMissingFlag  = errors.New("missing required flag")
	ErrInvalidPair  = errors.New("expected key=value")
	ErrNoMetadata   = errors.New("at least one --set is required")
	ErrNoUserID     = errors.New("no user id: pass --user-id or use a token with a subject")
	ErrTokenExpired = errors.New("management token has expired")
)

// Options are the flags shared by every command.
type Options struct {
	UserID  string
	Async   bool
	Pretty  bool
	Timeout time.Duration
}

// AddFlags registers the shared flags.
func (o *Options) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&o.UserID, "user-id", "", "Primary user id, defaults to the token subject.")
	f.BoolVar(&o.Async, "async", false, "Run the request in the background and deliver the result through a callback loop.")
	f.BoolVar(&o.Pretty, "pretty", false, "Indent the JSON output.")
	f.DurationVar(&o.Timeout, "timeout", 0, "Overall deadline for the command, 0 for none.")
}

func newFlagSet(name string, output io.Writer) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)
	f.SetOutput(output)
	return f
}

// environment is what a command needs to run.
type environment struct {
	opts   *Options
	token  string
	logger *slog.Logger
	client *management.UsersAPIClient
	looper *request.Looper
}

// userID resolves the primary user from --user-id or the token subject.
func (e *environment) userID() (string, error) {
	if e.opts.UserID != "" {
		return e.opts.UserID, nil
	}

	if expired, err := token.IsExpired(e.token, time.Now()); err == nil && expired {
		return "", ErrTokenExpired
	}

	sub, err := token.Subject(e.token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoUserID, err)
	}
	return sub, nil
}

type command struct {
	addFlags func(f *pflag.FlagSet)
	run      func(ctx context.Context, env *environment) (any, error)
}

var commands = map[string]*command{
	"profile":         profileCommand(),
	"update-metadata": updateMetadataCommand(),
	"link":            linkCommand(),
	"unlink":          unlinkCommand(),
}

func profileCommand() *command {
	return &command{
		addFlags: func(*pflag.FlagSet) {},
		run: func(ctx context.Context, env *environment) (any, error) {
			userID, err := env.userID()
			if err != nil {
				return nil, err
			}
			return perform(ctx, env, env.client.GetProfile(userID))
		},
	}
}

func updateMetadataCommand() *command {
	var pairs []string
	return &command{
		addFlags: func(f *pflag.FlagSet) {
			f.StringArrayVar(&pairs, "set", nil, "Metadata entry as key=value; JSON values are decoded.")
		},
		run: func(ctx context.Context, env *environment) (any, error) {
			metadata, err := parseMetadata(pairs)
			if err != nil {
				return nil, err
			}
			userID, err := env.userID()
			if err != nil {
				return nil, err
			}
			return perform(ctx, env, env.client.UpdateMetadata(userID, metadata))
		},
	}
}

func linkCommand() *command {
	var secondaryToken string
	return &command{
		addFlags: func(f *pflag.FlagSet) {
			f.StringVar(&secondaryToken, "secondary-token", "", "Token of the identity to link.")
		},
		run: func(ctx context.Context, env *environment) (any, error) {
			if secondaryToken == "" {
				return nil, fmt.Errorf("%w: --secondary-token", ErrMissingFlag)
			}
			userID, err := env.userID()
			if err != nil {
				return nil, err
			}
			return perform(ctx, env, env.client.Link(userID, secondaryToken))
		},
	}
}

func unlinkCommand() *command {
	var secondaryUserID, provider string
	return &command{
		addFlags: func(f *pflag.FlagSet) {
			f.StringVar(&secondaryUserID, "secondary-user-id", "", "User id of the identity to unlink.")
			f.StringVar(&provider, "provider", "", "Provider of the identity to unlink.")
		},
		run: func(ctx context.Context, env *environment) (any, error) {
			if secondaryUserID == "" {
				return nil, fmt.Errorf("%w: --secondary-user-id", ErrMissingFlag)
			}
			if provider == "" {
				return nil, fmt.Errorf("%w: --provider", ErrMissingFlag)
			}
			userID, err := env.userID()
			if err != nil {
				return nil, err
			}
			return perform(ctx, env, env.client.Unlink(userID, secondaryUserID, provider))
		},
	}
}

// perform runs req synchronously, or through Start and the looper when
// --async is set.
func perform[T any](ctx context.Context, env *environment, req request.Request[T, *management.Error]) (T, error) {
	if env.looper == nil {
		return req.Execute(ctx)
	}

	var (
		result  T
		failure error
	)
	req.Start(ctx, request.CallbackFuncs[T, *management.Error]{
		Success: func(r T) { result = r },
		Failure: func(err *management.Error) { failure = err },
	})
	if err := env.looper.RunOne(ctx); err != nil {
		return result, err
	}
	return result, failure
}

// parseMetadata turns key=value pairs into a metadata map. Values that
// parse as JSON keep their type, anything else is a string.
func parseMetadata(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, ErrNoMetadata
	}

	metadata := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPair, pair)
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		metadata[key] = value
	}
	return metadata, nil
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
