package models

import (
	"log/slog"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/emailbuilder/internal/config"
	"git.home.luguber.info/inful/emailbuilder/internal/images"
	"git.home.luguber.info/inful/emailbuilder/internal/inky"
	"git.home.luguber.info/inful/emailbuilder/internal/inliner"
	"git.home.luguber.info/inful/emailbuilder/internal/logfields"
	"git.home.luguber.info/inful/emailbuilder/internal/metrics"
	"git.home.luguber.info/inful/emailbuilder/internal/styles"
)

// Toolchain groups the transform collaborators the stages delegate to.
type Toolchain struct {
	Compiler       styles.Compiler
	Templates      *inky.Inky
	Images         *images.Compressor
	InlinerOptions []inliner.Option
}

// DefaultToolchain wires the production collaborators for env.
func DefaultToolchain(env config.Env) Toolchain {
	return Toolchain{
		Compiler:  styles.NewSassCompiler(env.SassBinary),
		Templates: inky.New(),
		Images:    images.New(),
	}
}

// ErrorHandler is invoked once for every failed stage.
type ErrorHandler func(stage StageName, err error)

// BuildState carries the mutable state of one run across stages.
type BuildState struct {
	Config *config.Config
	Env    config.Env
	FS     afero.Fs
	Report *BuildReport

	// Watching suppresses source and output path recording.
	Watching bool

	Toolchain Toolchain
	Recorder  metrics.Recorder
	Observer  BuildObserver
	OnError   ErrorHandler
}

// NewBuildState constructs a BuildState with noop observability.
func NewBuildState(cfg *config.Config, env config.Env, fsys afero.Fs, report *BuildReport) *BuildState {
	return &BuildState{
		Config:    cfg,
		Env:       env,
		FS:        fsys,
		Report:    report,
		Toolchain: DefaultToolchain(env),
		Recorder:  metrics.NoopRecorder{},
		Observer:  NoopObserver{},
	}
}

// RecordStep logs the stage label and appends it to the report.
func (bs *BuildState) RecordStep(stage StageName) {
	label := stage.Label()
	bs.Report.Steps = append(bs.Report.Steps, label)
	slog.Info(label, logfields.RunID(bs.Report.RunID), logfields.Stage(string(stage)))
}

// AddSource records an input glob unless watching.
func (bs *BuildState) AddSource(glob string) {
	if bs.Watching {
		return
	}
	bs.Report.Sources = append(bs.Report.Sources, glob)
}

// AddOutput records an output path unless watching.
func (bs *BuildState) AddOutput(p string) {
	if bs.Watching {
		return
	}
	bs.Report.Outputs = append(bs.Report.Outputs, p)
}

// AddFiles counts n written files for stage.
func (bs *BuildState) AddFiles(stage StageName, n int) {
	bs.Report.Files[stage] += n
}
