// Package emails is the email build task: it owns the effective configuration and
// runs the build pipeline once or in watch mode.
package emails

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/emailbuilder/internal/config"
	"git.home.luguber.info/inful/emailbuilder/internal/emails/models"
	"git.home.luguber.info/inful/emailbuilder/internal/emails/stages"
	"git.home.luguber.info/inful/emailbuilder/internal/logfields"
	"git.home.luguber.info/inful/emailbuilder/internal/metrics"
	"git.home.luguber.info/inful/emailbuilder/internal/notify"
	"git.home.luguber.info/inful/emailbuilder/internal/watcher"
)

// Name is the task name.
const Name = "foundationEmails"

// BuildTask is the surface a host runner needs.
type BuildTask interface {
	Name() string
	Run(ctx context.Context) (*models.BuildReport, error)
	Watch(ctx context.Context) error
}

// HistoryRecorder persists finished reports.
type HistoryRecorder interface {
	Record(ctx context.Context, report *models.BuildReport) error
}

// Task runs the email build pipeline.
type Task struct {
	cfg *config.Config
	env config.Env
	fs  afero.Fs

	defs      []models.StageDef
	toolchain models.Toolchain
	onError   models.ErrorHandler
	notifier  notify.Notifier
	recorder  metrics.Recorder
	observer  models.BuildObserver
	history   HistoryRecorder
	watchOpts []watcher.Option

	// mu serializes runs; the configuration is read-only while one is active.
	mu sync.Mutex
}

var _ BuildTask = (*Task)(nil)

// Option configures a Task.
type Option func(*Task)

// WithStages replaces the stage definitions.
func WithStages(defs []models.StageDef) Option { return func(t *Task) { t.defs = defs } }

// WithToolchain replaces the transform collaborators.
func WithToolchain(tc models.Toolchain) Option { return func(t *Task) { t.toolchain = tc } }

// WithErrorHandler sets the callback invoked for every failed stage.
func WithErrorHandler(h models.ErrorHandler) Option { return func(t *Task) { t.onError = h } }

// WithNotifier sets the completion notification sink.
func WithNotifier(n notify.Notifier) Option { return func(t *Task) { t.notifier = n } }

// WithRecorder enables metrics.
func WithRecorder(r metrics.Recorder) Option { return func(t *Task) { t.recorder = r } }

// WithObserver adds an observer called alongside the metrics observer.
func WithObserver(o models.BuildObserver) Option { return func(t *Task) { t.observer = o } }

// WithHistory records every finished run.
func WithHistory(h HistoryRecorder) Option { return func(t *Task) { t.history = h } }

// WithWatchOptions passes options to the watcher created by Watch.
func WithWatchOptions(opts ...watcher.Option) Option {
	return func(t *Task) { t.watchOpts = append(t.watchOpts, opts...) }
}

// New constructs a Task for an already resolved configuration.
func New(cfg *config.Config, env config.Env, fsys afero.Fs, opts ...Option) *Task {
	t := &Task{
		cfg:       cfg,
		env:       env,
		fs:        fsys,
		defs:      stages.Default(),
		toolchain: models.DefaultToolchain(env),
		notifier:  notify.LogNotifier{},
		recorder:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Task) Name() string { return Name }

// Config returns the effective configuration.
func (t *Task) Config() *config.Config { return t.cfg }

// Start launches a full build in the background. The channel receives the
// finished report once and is then closed.
func (t *Task) Start(ctx context.Context) <-chan *models.BuildReport {
	return t.start(ctx, models.TriggerBuild, false, t.defs)
}

// Run executes a full build and blocks until it finishes. The returned error
// joins every stage error; the completion notification has fired either way.
func (t *Task) Run(ctx context.Context) (*models.BuildReport, error) {
	report := <-t.Start(ctx)
	return report, report.Err()
}

// RunStages runs the named stages in pipeline order with watch-mode path
// recording suppressed.
func (t *Task) RunStages(ctx context.Context, trigger string, names ...models.StageName) (*models.BuildReport, error) {
	report := <-t.start(ctx, trigger, true, models.Select(t.defs, names...))
	return report, report.Err()
}

// Watch performs a full build, then reruns stage subsets on file changes until
// ctx is canceled.
func (t *Task) Watch(ctx context.Context) error {
	if _, err := t.Run(ctx); err != nil {
		slog.Warn("Initial build finished with errors", logfields.Error(err))
	}
	opts := append([]watcher.Option{watcher.WithRecorder(t.recorder)}, t.watchOpts...)
	return watcher.New(t, t.cfg, opts...).Run(ctx)
}

func (t *Task) start(ctx context.Context, trigger string, watching bool, defs []models.StageDef) <-chan *models.BuildReport {
	done := make(chan *models.BuildReport, 1)
	go func() {
		defer close(done)
		done <- t.execute(ctx, trigger, watching, defs)
	}()
	return done
}

func (t *Task) execute(ctx context.Context, trigger string, watching bool, defs []models.StageDef) *models.BuildReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	report := models.NewBuildReport(uuid.NewString(), trigger)
	bs := models.NewBuildState(t.cfg, t.env, t.fs, report)
	bs.Watching = watching
	bs.Toolchain = t.toolchain
	bs.Recorder = t.recorder
	bs.OnError = t.onError
	obs := models.MultiObserver{models.RecorderObserver{Recorder: t.recorder}}
	if t.observer != nil {
		obs = append(obs, t.observer)
	}
	bs.Observer = obs

	slog.Debug("Build started", logfields.RunID(report.RunID), logfields.Trigger(trigger))
	_ = stages.RunStages(ctx, bs, defs)

	report.Finish()
	report.DeriveOutcome()
	obs.OnBuildComplete(report)
	slog.Info("Build complete", logfields.RunID(report.RunID), "summary", report.Summary())

	// The run is over; notification and history must not be skipped because
	// ctx was canceled.
	finishCtx := context.WithoutCancel(ctx)
	if t.history != nil {
		if err := t.history.Record(finishCtx, report); err != nil {
			slog.Warn("Failed to record build history", logfields.RunID(report.RunID), logfields.Error(err))
		}
	}
	if t.notifier != nil {
		if err := t.notifier.Notify(finishCtx, eventFor(report)); err != nil {
			slog.Warn("Failed to send completion notification", logfields.RunID(report.RunID), logfields.Error(err))
		}
	}
	return report
}

// MessageFor returns the completion message of trigger.
func MessageFor(trigger string) string {
	switch trigger {
	case models.TriggerWatchTemplates:
		return notify.MessageTemplatesCompiled
	case models.TriggerWatchImages:
		return notify.MessageImagesMinified
	default:
		return notify.MessageCompiled
	}
}

func eventFor(r *models.BuildReport) notify.Event {
	ev := notify.Event{
		RunID:    r.RunID,
		Trigger:  r.Trigger,
		Message:  MessageFor(r.Trigger),
		Outcome:  string(r.Outcome),
		Duration: r.Duration(),
		Outputs:  r.Outputs,
		Time:     r.End,
	}
	for _, err := range r.Errors {
		ev.Errors = append(ev.Errors, err.Error())
	}
	return ev
}
