package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ts-platform/portal/internal/cli/auth"
	"github.com/ts-platform/portal/internal/cli/client"
	"github.com/ts-platform/portal/internal/cli/config"
	"github.com/ts-platform/portal/internal/cli/progress"
	"github.com/ts-platform/portal/internal/logger"
	"github.com/ts-platform/portal/internal/models"
)

// Env is everything a command needs from the outside world.
// Fields left unset by options are resolved from the config file and flags.
type Env struct {
	Config     *config.Config
	ConfigPath string
	Settings   *config.Settings
	Store      *auth.Store
	Client     *client.Client
	Logger     zerolog.Logger

	Out io.Writer
	Err io.Writer

	// ReadSecret reads a hidden value such as a password
	ReadSecret func(prompt string) (string, error)
	// OpenURL opens a URL in the user's browser
	OpenURL func(url string) error
}

// Option configures the Env of a command
type Option func(*Env)

// WithAPIClient sets the API client
func WithAPIClient(c *client.Client) Option {
	return func(e *Env) { e.Client = c }
}

// WithTokenStore sets the session and token store
func WithTokenStore(store *auth.Store) Option {
	return func(e *Env) { e.Store = store }
}

// WithServer sets the resolved server settings
func WithServer(settings *config.Settings) Option {
	return func(e *Env) { e.Settings = settings }
}

// WithConfig sets the config file contents and where it is saved
func WithConfig(cfg *config.Config, path string) Option {
	return func(e *Env) {
		e.Config = cfg
		e.ConfigPath = path
	}
}

// WithSecretReader replaces the terminal password prompt
func WithSecretReader(read func(prompt string) (string, error)) Option {
	return func(e *Env) { e.ReadSecret = read }
}

// WithBrowser replaces the browser launcher
func WithBrowser(open func(url string) error) Option {
	return func(e *Env) { e.OpenURL = open }
}

// newEnv applies opts and fills the rest from the config file, flags and environment
func newEnv(cmd *cobra.Command, opts ...Option) (*Env, error) {
	env := &Env{
		Out:        cmd.OutOrStdout(),
		Err:        cmd.ErrOrStderr(),
		Logger:     logger.GetLogger(),
		ReadSecret: readSecret,
		OpenURL:    openBrowser,
	}
	for _, opt := range opts {
		opt(env)
	}

	if env.Config == nil {
		cfg, path, err := config.LoadDefault()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		env.Config = cfg
		env.ConfigPath = path
	}

	if env.Settings == nil {
		settings, err := config.Resolve(env.Config, flagValue(cmd, "server"))
		if err != nil {
			return nil, err
		}
		env.Settings = settings
	}

	if env.Store == nil {
		backend, err := storageBackend(env.Settings)
		if err != nil {
			return nil, err
		}
		env.Store = auth.NewStore(backend, env.Logger)
	}

	if env.Client == nil {
		broadcaster := progress.New()
		if progress.IsTerminal(os.Stderr) {
			broadcaster.Subscribe(progress.Indicator(os.Stderr, "working..."))
		}
		env.Client = client.New(env.Settings.APIURL,
			client.WithHTTPClient(&http.Client{Timeout: env.Settings.Timeout}),
			client.WithStore(env.Store),
			client.WithProgress(broadcaster),
			client.WithLogger(env.Logger),
		)
	}

	return env, nil
}

func storageBackend(settings *config.Settings) (auth.Backend, error) {
	switch settings.Storage {
	case config.StorageFile:
		path, err := config.StatePath(settings.ServerName)
		if err != nil {
			return nil, err
		}
		return auth.NewFileBackend(path), nil
	default:
		return auth.NewKeyringBackend(settings.ServerName), nil
	}
}

func flagValue(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}

// requireRole fails before any network call when the stored session lacks role
func (e *Env) requireRole(role models.Role) (auth.Session, error) {
	check := e.Store.RequireRole(role)
	if err := check.Err(role); err != nil {
		return auth.Session{}, err
	}
	return check.Session, nil
}

// requireSession fails when nobody is logged in
func (e *Env) requireSession() (auth.Session, error) {
	session, ok := e.Store.Session()
	if !ok {
		return auth.Session{}, client.ErrNotAuthenticated
	}
	return session, nil
}

// readSecret prompts on the terminal without echo
func readSecret(prompt string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("cannot prompt for %s in non-interactive mode", strings.ToLower(strings.TrimSuffix(prompt, ": ")))
	}

	fmt.Fprint(os.Stderr, prompt)
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(value), nil
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

type runFunc func(ctx context.Context, env *Env, args []string) error

// withEnv adapts run to a cobra RunE, resolving the Env first
func withEnv(opts []Option, run runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		env, err := newEnv(cmd, opts...)
		if err != nil {
			return err
		}
		return run(cmd.Context(), env, args)
	}
}

// printTable writes rows under an underlined header
func printTable(out io.Writer, headers []string, rows [][]string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))

	rules := make([]string, len(headers))
	for i, h := range headers {
		rules[i] = strings.Repeat("─", utf8.RuneCountInString(h))
	}
	fmt.Fprintln(w, strings.Join(rules, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"}

// parseTime accepts RFC 3339 or a local "YYYY-MM-DD[ HH:MM]"
func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time '%s', expected YYYY-MM-DD HH:MM or RFC 3339", value)
}
