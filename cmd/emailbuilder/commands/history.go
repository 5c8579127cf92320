package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/emailbuilder/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of runs to show" default:"20"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(filesystem(g), root, nil)
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return errors.ConfigError("history is disabled; set history.path in the configuration").Build()
	}
	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return errors.HistoryError("open history").WithCause(err).
			WithContext("path", cfg.History.Path).
			Build()
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	runs, err := store.Recent(ctx, h.Limit)
	if err != nil {
		return errors.HistoryError("list runs").WithCause(err).Build()
	}
	return printRuns(stdout(g), runs)
}

func printRuns(out io.Writer, runs []history.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tTRIGGER\tOUTCOME\tDURATION\tFILES\tERRORS")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.Start.Local().Format(time.DateTime),
			r.Trigger,
			outcomeColor(r.Outcome).Sprint(r.Outcome),
			r.Duration.Truncate(time.Millisecond),
			r.Files,
			len(r.Errors),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, r := range runs {
		for _, e := range r.Errors {
			_, _ = fmt.Fprintf(out, "%s  %s\n", r.RunID[:min(8, len(r.RunID))], strings.TrimSpace(e))
		}
	}
	return nil
}

func outcomeColor(outcome string) *color.Color {
	switch outcome {
	case "success":
		return color.New(color.FgGreen)
	case "failed":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}
