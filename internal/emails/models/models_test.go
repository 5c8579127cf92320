package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/emailbuilder/internal/metrics"
)

func noop(context.Context, *BuildState) error { return nil }

func TestPipelineBuilder(t *testing.T) {
	defs := NewPipeline().
		Add(StageClean, noop).
		Add(StageStyles, noop).
		Add(StageInline, noop).
		Build()

	names := make([]StageName, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	assert.Equal(t, []StageName{StageClean, StageStyles, StageInline}, names)
}

func TestSelectKeepsPipelineOrder(t *testing.T) {
	defs := NewPipeline().
		Add(StageClean, noop).
		Add(StageTemplates, noop).
		Add(StageStyles, noop).
		Add(StageImages, noop).
		Add(StageInline, noop).
		Build()

	got := Select(defs, StageInline, StageTemplates, StageStyles)
	require.Len(t, got, 3)
	assert.Equal(t, StageTemplates, got[0].Name)
	assert.Equal(t, StageStyles, got[1].Name)
	assert.Equal(t, StageInline, got[2].Name)
}

func TestStageLabels(t *testing.T) {
	assert.Equal(t, "Clean compiled", StageClean.Label())
	assert.Equal(t, "Compiling Templates", StageTemplates.Label())
	assert.Equal(t, "Compiling Sass", StageStyles.Label())
	assert.Equal(t, "Minifying Images", StageImages.Label())
	assert.Equal(t, "Inlining Css", StageInline.Label())
	assert.Equal(t, "custom", StageName("custom").Label())
}

func TestDeriveOutcome(t *testing.T) {
	r := NewBuildReport("id", TriggerBuild)
	r.DeriveOutcome()
	assert.Equal(t, OutcomeSuccess, r.Outcome)

	r.AddError(NewFatalStageError(StageStyles, errors.New("syntax")))
	r.DeriveOutcome()
	assert.Equal(t, OutcomeFailed, r.Outcome)

	r.AddError(NewCanceledStageError(StageInline, context.Canceled))
	r.DeriveOutcome()
	assert.Equal(t, OutcomeCanceled, r.Outcome)
	assert.ErrorIs(t, r.Err(), context.Canceled)
}

func TestReportSummary(t *testing.T) {
	r := NewBuildReport("abc", TriggerWatchStyles)
	r.Files[StageTemplates] = 2
	r.Files[StageInline] = 2
	r.RecordStageResult(StageTemplates, StageResultSuccess, nil)
	r.Finish()
	r.DeriveOutcome()

	s := r.Summary()
	assert.Contains(t, s, "run=abc")
	assert.Contains(t, s, "trigger=watch:styles")
	assert.Contains(t, s, "files=4")
	assert.Contains(t, s, "outcome=success")
}

type fakeRecorder struct {
	metrics.NoopRecorder
	results  map[string]metrics.ResultLabel
	outcomes []string
	files    map[string]int
}

func (f *fakeRecorder) IncStageResult(stage string, r metrics.ResultLabel) { f.results[stage] = r }
func (f *fakeRecorder) IncBuildOutcome(o string)                          { f.outcomes = append(f.outcomes, o) }
func (f *fakeRecorder) AddFilesProcessed(stage string, n int)             { f.files[stage] += n }

func TestRecorderObserver(t *testing.T) {
	rec := &fakeRecorder{results: map[string]metrics.ResultLabel{}, files: map[string]int{}}
	r := NewBuildReport("id", TriggerBuild)
	r.RecordStageResult(StageStyles, StageResultFailed, rec)
	r.RecordStageResult(StageImages, StageResultSkipped, rec)
	r.Files[StageImages] = 3
	r.Outcome = OutcomeFailed

	obs := MultiObserver{NoopObserver{}, RecorderObserver{Recorder: rec}}
	obs.OnStageStart(StageStyles)
	obs.OnStageComplete(StageStyles, time.Millisecond, StageResultFailed)
	obs.OnBuildComplete(r)

	assert.Equal(t, metrics.ResultFailed, rec.results["styles"])
	assert.Equal(t, metrics.ResultSkipped, rec.results["images"])
	assert.Equal(t, []string{"failed"}, rec.outcomes)
	assert.Equal(t, 3, rec.files["images"])
}
