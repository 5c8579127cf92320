package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/emailbuilder/internal/config"
	"git.home.luguber.info/inful/emailbuilder/internal/emails"
	"git.home.luguber.info/inful/emailbuilder/internal/foundation"
	"git.home.luguber.info/inful/emailbuilder/internal/history"
	"git.home.luguber.info/inful/emailbuilder/internal/logfields"
	"git.home.luguber.info/inful/emailbuilder/internal/metrics"
	"git.home.luguber.info/inful/emailbuilder/internal/notify"
)

// Global context passed to subcommands.
type Global struct {
	FS  afero.Fs
	Out io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"emailbuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the email templates, styles and images once"`
	Watch   WatchCmd   `cmd:"" help:"Build once, then rebuild on source changes"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	Send    SendCmd    `cmd:"" help:"Send a built view as a test email"`
	Publish PublishCmd `cmd:"" help:"Upload built images to S3 and point views at them"`
	History HistoryCmd `cmd:"" help:"List recent build runs"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose, env.LogLevel)}))
	slog.SetDefault(logger)
	return nil
}

var logLevels = foundation.NewNormalizer(map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}, slog.LevelInfo)

// parseLogLevel honours --verbose first, then the configured level name.
func parseLogLevel(verbose bool, level string) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return logLevels.Normalize(level)
}

// PathFlags override the configured paths for one invocation.
type PathFlags struct {
	Sass       string `help:"Sass entry file"`
	Source     string `help:"Template source directory"`
	Views      string `help:"Compiled views directory"`
	Images     string `help:"Image source directory"`
	ImagesDist string `name:"images-dist" help:"Image output directory"`
	PublicCSS  string `name:"public-css" help:"Public stylesheet directory"`
	Compiled   string `help:"Internal compiled output directory"`
}

// Options converts the set flags into a configuration layer.
func (p PathFlags) Options() config.Options {
	opts := config.Options{}
	set := func(key, value string) {
		if value != "" {
			opts[key] = value
		}
	}
	set("sass", p.Sass)
	set("source", p.Source)
	set("views", p.Views)
	set("images", p.Images)
	set("images_dist", p.ImagesDist)
	set("public_css", p.PublicCSS)
	set("compiled", p.Compiled)
	return opts
}

// EnvFlags override the environment toggles.
type EnvFlags struct {
	Production   bool `short:"p" help:"Production build: purge, inline and skip the public stylesheet"`
	NoSourcemaps bool `name:"no-sourcemaps" help:"Disable Sass source maps"`
}

// Apply layers the flags over the parsed environment.
func (e EnvFlags) Apply(env config.Env) config.Env {
	if e.Production {
		env.Production = true
	}
	if e.NoSourcemaps {
		env.Sourcemaps = false
	}
	return env
}

func filesystem(g *Global) afero.Fs {
	if g != nil && g.FS != nil {
		return g.FS
	}
	return afero.NewOsFs()
}

func stdout(g *Global) io.Writer {
	if g != nil && g.Out != nil {
		return g.Out
	}
	return os.Stdout
}

func loadConfig(fsys afero.Fs, root *CLI, opts config.Options) (*config.Config, error) {
	return config.Resolve(fsys, root.Config, opts)
}

// taskDeps are the collaborators opened for a task; close releases them.
type taskDeps struct {
	opts    []emails.Option
	closers []func() error
}

func (d *taskDeps) close() {
	for _, c := range d.closers {
		if err := c(); err != nil {
			slog.Warn("Failed to close resource", logfields.Error(err))
		}
	}
}

// openTaskDeps builds the notifiers and history store selected by cfg.
func openTaskDeps(fsys afero.Fs, out io.Writer, cfg *config.Config, recorder metrics.Recorder) (*taskDeps, error) {
	deps := &taskDeps{}
	notifiers := notify.Multi{notify.LogNotifier{}}
	if cfg.Notify.Terminal {
		terminal := notify.NewTerminalNotifier(fsys)
		terminal.Out = out
		notifiers = append(notifiers, terminal)
	}
	if cfg.Notify.NATS.URL != "" {
		n, err := notify.NewNATSNotifier(cfg.Notify.NATS.URL, cfg.Notify.NATS.Subject)
		if err != nil {
			deps.close()
			return nil, err
		}
		notifiers = append(notifiers, n)
		deps.closers = append(deps.closers, n.Close)
	}
	deps.opts = append(deps.opts, emails.WithNotifier(notifiers))

	if cfg.History.Path != "" {
		store, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			deps.close()
			return nil, err
		}
		deps.opts = append(deps.opts, emails.WithHistory(store))
		deps.closers = append(deps.closers, store.Close)
	}
	if recorder != nil {
		deps.opts = append(deps.opts, emails.WithRecorder(recorder))
	}
	return deps, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
