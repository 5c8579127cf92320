package metrics

import (
	"testing"
	"time"
)

type testRecorder struct {
	stageDurations map[string]int
	stageResults   map[string]map[ResultLabel]int
	buildOutcomes  map[string]int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{stageDurations: map[string]int{}, stageResults: map[string]map[ResultLabel]int{}, buildOutcomes: map[string]int{}}
}

func (t *testRecorder) ObserveStageDuration(stage string, _ time.Duration) { t.stageDurations[stage]++ }
func (t *testRecorder) IncStageResult(stage string, result ResultLabel) {
	m, ok := t.stageResults[stage]
	if !ok {
		m = map[ResultLabel]int{}
		t.stageResults[stage] = m
	}
	m[result]++
}
func (t *testRecorder) ObserveBuildDuration(time.Duration) {}
func (t *testRecorder) IncBuildOutcome(outcome string)     { t.buildOutcomes[outcome]++ }
func (t *testRecorder) AddFilesProcessed(string, int)      {}
func (t *testRecorder) IncWatchTrigger(string)             {}

func TestRecorderInterfaceSatisfied(t *testing.T) {
	var _ Recorder = NoopRecorder{}
	var _ Recorder = (*PrometheusRecorder)(nil)
	var r Recorder = newTestRecorder()
	r.ObserveStageDuration("inline", time.Second)
	r.IncStageResult("inline", ResultSuccess)
	r.IncBuildOutcome("success")
	tr := r.(*testRecorder)
	if tr.stageDurations["inline"] != 1 || tr.stageResults["inline"][ResultSuccess] != 1 || tr.buildOutcomes["success"] != 1 {
		t.Fatalf("unexpected counts: %+v", tr)
	}
}
