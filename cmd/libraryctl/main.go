// libraryctl signs in to the library catalog and keeps the session between
// invocations.
//
// Usage:
//
//	libraryctl [flags] <command>
//
// Commands:
//
//	login    --email E --password P
//	signup   --username U --email E --password P [--confirm C]
//	logout
//	status   print whether a session is active
//	whoami   print the signed-in profile
//	refresh  re-read the profile from the server
//
// The session is stored in $XDG_STATE_HOME/goSession/session.json unless the
// config file or GOSESSION_STORE_* variables choose another backend.
// --store=memory-redis runs against an in-process Redis for local testing.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/endpoint"
	"github.com/MrEthical07/goSession/transport"
)

const storeMemoryRedis = "memory-redis"

type options struct {
	configPath string
	baseURL    string
	store      string
	storePath  string
	verbose    bool

	email    string
	password string
	username string
	confirm  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options

	fs := pflag.NewFlagSet("libraryctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "", "YAML config file (env GOSESSION_* overrides it)")
	fs.StringVar(&opts.baseURL, "base-url", "", "authentication API root (default from config)")
	fs.StringVar(&opts.store, "store", "", "store backend: memory, file, redis, sqlite, memory-redis")
	fs.StringVar(&opts.storePath, "store-path", "", "file or sqlite path for the store backend")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log HTTP calls and session transitions")
	fs.StringVar(&opts.email, "email", "", "account email")
	fs.StringVar(&opts.password, "password", os.Getenv("LIBRARYCTL_PASSWORD"), "account password (env LIBRARYCTL_PASSWORD)")
	fs.StringVar(&opts.username, "username", "", "username for signup")
	fs.StringVar(&opts.confirm, "confirm", "", "password confirmation for signup (defaults to --password)")
	fs.BoolP("help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(fs, stderr)
			return nil
		}
		return err
	}
	if help, _ := fs.GetBool("help"); help || fs.NArg() == 0 {
		printHelp(fs, stderr)
		return nil
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(1))
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	a, cleanup, err := buildAuthority(opts, logger, stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.Start(ctx); err != nil {
		logger.Warn("session store unavailable", "error", err)
	}

	return dispatch(ctx, fs.Arg(0), a, opts, stdout)
}

func buildAuthority(opts options, logger *slog.Logger, stderr io.Writer) (*goSession.Authority, func(), error) {
	cfg, err := goSession.LoadConfig(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.baseURL != "" {
		cfg.Endpoint.BaseURL = opts.baseURL
	}
	if opts.storePath != "" {
		cfg.Store.Path = opts.storePath
		cfg.Store.SQLitePath = opts.storePath
	}

	cleanup := func() {}
	b := goSession.New().WithLogger(logger)

	switch opts.store {
	case "":
	case storeMemoryRedis:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start in-process redis: %w", err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cfg.Store.Backend = goSession.BackendRedis
		cfg.Store.RedisAddr = mr.Addr()
		b = b.WithRedis(client)
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
	default:
		cfg.Store.Backend = opts.store
	}

	if opts.verbose {
		cfg.Audit.Enabled = true
		b = b.WithAuditSink(goSession.NewSlogSink(logger, slog.LevelInfo))
	}

	ep := endpoint.New(cfg.Endpoint.BaseURL, nil)
	a, err := b.
		WithConfig(cfg).
		WithEndpoint(ep).
		WithNavigator(goSession.NavigatorFunc(func(_ context.Context, v goSession.View) {
			if v == goSession.ViewLogin {
				fmt.Fprintln(stderr, "Please sign in: libraryctl login --email <email>")
			}
		})).
		Build()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var clientOpts []transport.Option
	if opts.verbose {
		clientOpts = append(clientOpts, transport.WithLogger(logger))
	}
	ep.HTTP = transport.NewClient(a, clientOpts...)

	prev := cleanup
	return a, func() {
		_ = a.Close()
		prev()
	}, nil
}

func dispatch(ctx context.Context, cmd string, a *goSession.Authority, opts options, stdout io.Writer) error {
	switch cmd {
	case "login":
		state, err := a.Login(ctx, goSession.Credentials{Email: opts.email, Password: opts.password})
		if err != nil {
			return userError(err, "Login failed. Please try again.")
		}
		fmt.Fprintf(stdout, "Signed in as %s (%s)\n", displayName(state.User), state.User.Role)
		return nil

	case "signup":
		confirm := opts.confirm
		if confirm == "" {
			confirm = opts.password
		}
		p, err := a.Signup(ctx, goSession.SignupRequest{
			Username:        opts.username,
			Email:           opts.email,
			Password:        opts.password,
			ConfirmPassword: confirm,
		})
		if err != nil {
			return userError(err, endpoint.MsgSignupFailed)
		}
		fmt.Fprintf(stdout, "Account created for %s. You can now sign in.\n", displayName(p))
		return nil

	case "logout":
		if err := a.Logout(ctx, false); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Signed out.")
		return nil

	case "status":
		s := a.State()
		if !s.IsAuthenticated() {
			fmt.Fprintln(stdout, "Not signed in.")
			return nil
		}
		line := "Signed in as " + displayName(s.User)
		if raw, ok := a.Token(ctx); ok {
			if left, ok := a.Codec().Remaining(raw); ok {
				line += fmt.Sprintf("; session expires in %s", left.Round(time.Second))
			}
		}
		fmt.Fprintln(stdout, line+".")
		return nil

	case "whoami":
		u := a.CurrentUser()
		if u == nil {
			return errors.New("not signed in")
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(u)

	case "refresh":
		state, err := a.Refresh(ctx)
		if err != nil {
			return userError(err, endpoint.MsgProfileFailed)
		}
		fmt.Fprintf(stdout, "Profile refreshed: %s (%s)\n", displayName(state.User), state.User.Role)
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func userError(err error, fallback string) error {
	if errors.Is(err, goSession.ErrInvalidInput) {
		return err
	}
	return errors.New(goSession.RejectionMessage(err, fallback))
}

func displayName(u *goSession.UserProfile) string {
	if u == nil {
		return "unknown user"
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

func printHelp(fs *pflag.FlagSet, w io.Writer) {
	fmt.Fprint(w, strings.TrimLeft(`
libraryctl keeps a library catalog session on this machine.

Usage:
  libraryctl [flags] <login|signup|logout|status|whoami|refresh>

Examples:
  libraryctl login --email reader@example.com --password 'Passw0rd!'
  libraryctl whoami
  libraryctl --store memory-redis --base-url http://localhost:5164/api status

Flags:
`, "\n"))
	fs.SetOutput(w)
	fs.PrintDefaults()
}
