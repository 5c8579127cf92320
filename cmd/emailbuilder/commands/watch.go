package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/emailbuilder/internal/config"
	"git.home.luguber.info/inful/emailbuilder/internal/emails"
	"git.home.luguber.info/inful/emailbuilder/internal/logfields"
	"git.home.luguber.info/inful/emailbuilder/internal/metrics"
	"git.home.luguber.info/inful/emailbuilder/internal/watcher"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	PathFlags `embed:""`
	EnvFlags  `embed:""`

	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address (e.g. :9102)"`
	Debounce    time.Duration `help:"Quiet period before a change triggers a rebuild" default:"300ms"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	fsys := filesystem(g)
	cfg, err := loadConfig(fsys, root, w.Options())
	if err != nil {
		return err
	}
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	env = w.Apply(env)

	ctx, cancel := signalContext()
	defer cancel()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if w.MetricsAddr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		srv := &http.Server{
			Addr:              w.MetricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("Serving metrics", "addr", w.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	deps, err := openTaskDeps(fsys, stdout(g), cfg, recorder)
	if err != nil {
		return err
	}
	defer deps.close()

	opts := append(deps.opts, emails.WithWatchOptions(watcher.WithDebounce(w.Debounce)))
	task := emails.New(cfg, env, fsys, opts...)
	slog.Info("Watching for changes", "source", cfg.Source, "sass", cfg.SassDir(), "images", cfg.Images)
	if err := task.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func metricsMux(reg *prom.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	return mux
}
