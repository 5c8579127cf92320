package models

import (
	"context"
	"fmt"
)

// Stage is a discrete unit of work in the email build.
type Stage func(ctx context.Context, bs *BuildState) error

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names, in pipeline order.
const (
	StageClean     StageName = "clean"
	StageTemplates StageName = "templates"
	StageStyles    StageName = "styles"
	StageImages    StageName = "images"
	StageInline    StageName = "inline"
)

// Order is the fixed execution order of a full build.
var Order = []StageName{StageClean, StageTemplates, StageStyles, StageImages, StageInline}

var labels = map[StageName]string{
	StageClean:     "Clean compiled",
	StageTemplates: "Compiling Templates",
	StageStyles:    "Compiling Sass",
	StageImages:    "Minifying Images",
	StageInline:    "Inlining Css",
}

// Label is the human-readable progress label of the stage.
func (s StageName) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Stage failed.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying the stage and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// NewFatalStageError creates a new fatal stage error.
func NewFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func NewWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func NewCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// StageResult captures the high-level outcome of a stage.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultWarning  StageResult = "warning"
	StageResultFailed   StageResult = "failed"
	StageResultCanceled StageResult = "canceled"
	StageResultSkipped  StageResult = "skipped"
)

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is a fluent builder for ordered stage definitions.
type Pipeline struct{ Defs []StageDef }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{Defs: make([]StageDef, 0, len(Order))} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn})
	return p
}

// Build returns a copy of the stage definitions slice.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.Defs))
	copy(out, p.Defs)
	return out
}

// Select returns the definitions named in names, in pipeline order.
func Select(defs []StageDef, names ...StageName) []StageDef {
	want := make(map[StageName]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := make([]StageDef, 0, len(names))
	for _, d := range defs {
		if want[d.Name] {
			out = append(out, d)
		}
	}
	return out
}
