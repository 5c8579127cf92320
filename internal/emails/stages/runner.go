package stages

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/emailbuilder/internal/config"
	"git.home.luguber.info/inful/emailbuilder/internal/emails/models"
	"git.home.luguber.info/inful/emailbuilder/internal/logfields"
)

// RunStages executes stages strictly in order, recording timing and results on bs.Report.
//
// A failed stage is logged and handed to bs.OnError. Under the continue policy the
// next stage still runs; under the abort policy the remaining stages are marked
// skipped. Cancellation of ctx is checked between stages and always stops the run.
// The returned error joins every error recorded during this run.
func RunStages(ctx context.Context, bs *models.BuildState, defs []models.StageDef) error {
	obs := bs.Observer
	if obs == nil {
		obs = models.NoopObserver{}
	}
	abort := bs.Config != nil && bs.Config.OnError == config.OnErrorAbort

	for i, st := range defs {
		select {
		case <-ctx.Done():
			se := models.NewCanceledStageError(st.Name, ctx.Err())
			bs.Report.AddError(se)
			bs.Report.RecordStageResult(st.Name, models.StageResultCanceled, bs.Recorder)
			obs.OnStageComplete(st.Name, 0, models.StageResultCanceled)
			skipRemaining(bs, defs[i+1:])
			return bs.Report.Err()
		default:
		}

		obs.OnStageStart(st.Name)

		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)
		bs.Report.StageDurations[st.Name] = dur

		se, res := classify(st.Name, err)
		if se != nil {
			switch se.Kind {
			case models.StageErrorWarning:
				slog.Warn("Stage reported a warning",
					logfields.RunID(bs.Report.RunID), logfields.Stage(string(st.Name)), logfields.Error(se.Err))
			default:
				bs.Report.AddError(se)
				slog.Error("Stage failed",
					logfields.RunID(bs.Report.RunID),
					logfields.Stage(string(st.Name)),
					logfields.DurationMS(float64(dur.Milliseconds())),
					logfields.Error(se.Err))
				if bs.OnError != nil {
					bs.OnError(st.Name, se)
				}
			}
		}

		bs.Report.RecordStageResult(st.Name, res, bs.Recorder)
		obs.OnStageComplete(st.Name, dur, res)

		stop := res == models.StageResultCanceled || (res == models.StageResultFailed && abort)
		if stop {
			skipRemaining(bs, defs[i+1:])
			return bs.Report.Err()
		}
	}
	return bs.Report.Err()
}

// classify maps a stage error to its structured form and result.
func classify(stage models.StageName, err error) (*models.StageError, models.StageResult) {
	if err == nil {
		return nil, models.StageResultSuccess
	}
	var se *models.StageError
	if !errors.As(err, &se) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			se = models.NewCanceledStageError(stage, err)
		} else {
			se = models.NewFatalStageError(stage, err)
		}
	}
	switch se.Kind {
	case models.StageErrorWarning:
		return se, models.StageResultWarning
	case models.StageErrorCanceled:
		return se, models.StageResultCanceled
	default:
		return se, models.StageResultFailed
	}
}

func skipRemaining(bs *models.BuildState, rest []models.StageDef) {
	for _, st := range rest {
		bs.Report.RecordStageResult(st.Name, models.StageResultSkipped, bs.Recorder)
	}
}
