// Package notify delivers build completion notifications.
package notify

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/emailbuilder/internal/logfields"
)

// Completion messages.
const (
	MessageCompiled          = "Foundation emails Compiled!"
	MessageTemplatesCompiled = "Foundation emails templates Compiled!"
	MessageImagesMinified    = "Foundation emails images minified!"
)

// Event describes one finished run.
type Event struct {
	RunID    string        `json:"run_id"`
	Trigger  string        `json:"trigger"`
	Message  string        `json:"message"`
	Outcome  string        `json:"outcome"`
	Duration time.Duration `json:"duration_ns"`
	Errors   []string      `json:"errors,omitempty"`
	// Outputs are the output paths a one-shot run wrote.
	Outputs []string  `json:"outputs,omitempty"`
	Time    time.Time `json:"time"`
}

// Notifier receives completion events. Implementations must not block for long;
// the run is already finished when Notify is called.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// LogNotifier writes the event to slog.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, ev Event) error {
	attrs := []any{
		logfields.RunID(ev.RunID),
		logfields.Trigger(ev.Trigger),
		logfields.Outcome(ev.Outcome),
		logfields.DurationMS(float64(ev.Duration.Milliseconds())),
	}
	if len(ev.Errors) > 0 {
		slog.Warn(ev.Message, append(attrs, slog.Int("errors", len(ev.Errors)))...)
		return nil
	}
	slog.Info(ev.Message, attrs...)
	return nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return stdErrors.Join(errs...)
}
