package watcher

import (
	"context"
	stdErrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/emailbuilder/internal/config"
	"git.home.luguber.info/inful/emailbuilder/internal/emails/models"
	"git.home.luguber.info/inful/emailbuilder/internal/logfields"
	"git.home.luguber.info/inful/emailbuilder/internal/metrics"
)

// DefaultDebounce is the quiet period after the last change before a rerun starts.
const DefaultDebounce = 300 * time.Millisecond

// Runner reruns a subset of the build stages.
type Runner interface {
	RunStages(ctx context.Context, trigger string, stages ...models.StageName) (*models.BuildReport, error)
}

// Watcher observes the route roots and dispatches reruns.
//
// Reruns are serialized through one worker. A route triggered while a run is in
// flight is queued once; further triggers for the same route coalesce into that
// pending rerun. In-flight runs are never canceled.
type Watcher struct {
	runner   Runner
	routes   []Route
	ignore   []string
	debounce time.Duration
	recorder metrics.Recorder

	mu      sync.Mutex
	timers  map[int]*time.Timer
	pending map[int]bool
	wake    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option { return func(w *Watcher) { w.debounce = d } }

// WithRecorder counts triggers per route.
func WithRecorder(r metrics.Recorder) Option { return func(w *Watcher) { w.recorder = r } }

// WithRoutes replaces the routes derived from the configuration.
func WithRoutes(routes []Route) Option { return func(w *Watcher) { w.routes = routes } }

// New returns a Watcher for the routes of cfg.
func New(runner Runner, cfg *config.Config, opts ...Option) *Watcher {
	w := &Watcher{
		runner:   runner,
		routes:   Routes(cfg),
		ignore:   cfg.WatchIgnore,
		debounce: DefaultDebounce,
		recorder: metrics.NoopRecorder{},
		timers:   make(map[int]*time.Timer),
		pending:  make(map[int]bool),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is canceled. It returns only after the rerun in
// flight, if any, has finished.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	for _, r := range w.routes {
		if _, err := os.Stat(r.Root); stdErrors.Is(err, fs.ErrNotExist) {
			slog.Warn("Watch root does not exist; skipping", logfields.Route(r.Name), logfields.Path(r.Root))
			continue
		}
		if err := addDirsRecursive(fw, r.Root); err != nil {
			return err
		}
		slog.Info("Watching", logfields.Route(r.Name), logfields.Path(r.Root))
	}

	workerCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(workerCtx)
	}()
	defer func() {
		stop()
		w.stopTimers()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleFileEvent(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleFileEvent(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(fw, ev.Name)
			return
		}
	}
	if ev.Op == fsnotify.Chmod {
		return
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), "op", ev.Op.String())
	w.Dispatch(ev.Name)
}

// Dispatch schedules every route matching path and returns their names.
func (w *Watcher) Dispatch(path string) []string {
	if shouldIgnoreEvent(path) || ignored(w.ignore, path) {
		return nil
	}
	var names []string
	for i, r := range w.routes {
		if r.Matches(path) {
			w.schedule(i)
			names = append(names, r.Name)
		}
	}
	return names
}

// schedule (re)starts the debounce timer of route i.
func (w *Watcher) schedule(i int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[i]; ok {
		t.Stop()
	}
	w.timers[i] = time.AfterFunc(w.debounce, func() { w.enqueue(i) })
}

func (w *Watcher) enqueue(i int) {
	w.mu.Lock()
	delete(w.timers, i)
	already := w.pending[i]
	w.pending[i] = true
	w.mu.Unlock()

	w.recorder.IncWatchTrigger(w.routes[i].Name)
	if already {
		return
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// next pops the first pending route in route order.
func (w *Watcher) next() (Route, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, r := range w.routes {
		if w.pending[i] {
			delete(w.pending, i)
			return r, true
		}
	}
	return Route{}, false
}

func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
			for {
				r, ok := w.next()
				if !ok {
					break
				}
				if ctx.Err() != nil {
					return
				}
				if _, err := w.runner.RunStages(ctx, r.Trigger, r.Stages...); err != nil {
					slog.Warn("Watch rebuild finished with errors", logfields.Route(r.Name), logfields.Error(err))
				}
			}
		}
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, t := range w.timers {
		t.Stop()
		delete(w.timers, i)
	}
}

func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fw.Add(path); err != nil {
				slog.Warn("watch add failed", "dir", path, "error", err)
			}
		}
		return nil
	})
}
