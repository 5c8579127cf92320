package models

import (
	"errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/emailbuilder/internal/metrics"
)

// Triggers identify what started a run.
const (
	TriggerBuild          = "build"
	TriggerWatchTemplates = "watch:templates"
	TriggerWatchStyles    = "watch:styles"
	TriggerWatchImages    = "watch:images"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// BuildReport captures what a single run did.
type BuildReport struct {
	RunID   string
	Trigger string
	Start   time.Time
	End     time.Time

	// Steps lists the progress labels in the order the stages announced them.
	Steps []string
	// Sources and Outputs are the path globs a one-shot run read and wrote.
	// They stay empty while watching.
	Sources []string
	Outputs []string

	StageDurations map[StageName]time.Duration
	StageResults   map[StageName]StageResult
	// Files counts the files each stage wrote.
	Files  map[StageName]int
	Errors []error

	Outcome BuildOutcome
}

// NewBuildReport constructs a new BuildReport.
func NewBuildReport(runID, trigger string) *BuildReport {
	return &BuildReport{
		RunID:          runID,
		Trigger:        trigger,
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
		StageResults:   make(map[StageName]StageResult),
		Files:          make(map[StageName]int),
	}
}

// Finish sets the end time of the report.
func (r *BuildReport) Finish() { r.End = time.Now() }

// Duration is the wall time of the run, or the time so far when unfinished.
func (r *BuildReport) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// AddError records a stage error.
func (r *BuildReport) AddError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}

// Err joins every recorded error, or returns nil.
func (r *BuildReport) Err() error { return errors.Join(r.Errors...) }

// RecordStageResult stores the result and emits metrics (if recorder non-nil).
func (r *BuildReport) RecordStageResult(stage StageName, res StageResult, recorder metrics.Recorder) {
	r.StageResults[stage] = res
	if recorder == nil {
		return
	}
	switch res {
	case StageResultSuccess, StageResultWarning:
		recorder.IncStageResult(string(stage), metrics.ResultSuccess)
	case StageResultFailed:
		recorder.IncStageResult(string(stage), metrics.ResultFailed)
	case StageResultCanceled:
		recorder.IncStageResult(string(stage), metrics.ResultCanceled)
	case StageResultSkipped:
		recorder.IncStageResult(string(stage), metrics.ResultSkipped)
	}
}

// DeriveOutcome sets the Outcome field based on recorded errors.
func (r *BuildReport) DeriveOutcome() {
	for _, e := range r.Errors {
		var se *StageError
		if errors.As(e, &se) && se.Kind == StageErrorCanceled {
			r.Outcome = OutcomeCanceled
			return
		}
	}
	if len(r.Errors) > 0 {
		r.Outcome = OutcomeFailed
		return
	}
	r.Outcome = OutcomeSuccess
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	files := 0
	for _, n := range r.Files {
		files += n
	}
	return fmt.Sprintf("run=%s trigger=%s duration=%s stages=%d files=%d errors=%d outcome=%s",
		r.RunID, r.Trigger, r.Duration().Truncate(time.Millisecond), len(r.StageResults), files, len(r.Errors), string(r.Outcome))
}
