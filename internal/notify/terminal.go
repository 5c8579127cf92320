package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
)

// TerminalNotifier prints a coloured banner followed by the output path report.
type TerminalNotifier struct {
	Out io.Writer
	// FS resolves whether output paths exist. Nil means the OS filesystem.
	FS afero.Fs
}

// NewTerminalNotifier returns a notifier writing to stdout.
func NewTerminalNotifier(fsys afero.Fs) *TerminalNotifier {
	return &TerminalNotifier{Out: os.Stdout, FS: fsys}
}

func (t *TerminalNotifier) Notify(_ context.Context, ev Event) error {
	out := t.Out
	if out == nil {
		out = os.Stdout
	}
	banner := color.New(color.FgGreen, color.Bold)
	if len(ev.Errors) > 0 {
		banner = color.New(color.FgYellow, color.Bold)
	}
	if _, err := banner.Fprintf(out, "%s (%s)\n", ev.Message, ev.Duration.Truncate(time.Millisecond)); err != nil {
		return err
	}
	for _, e := range ev.Errors {
		if _, err := color.New(color.FgRed).Fprintf(out, "  ✗ %s\n", e); err != nil {
			return err
		}
	}
	if report := OutputReport(t.FS, ev.Outputs); report != "" {
		if _, err := fmt.Fprintln(out, report); err != nil {
			return err
		}
	}
	return nil
}

// OutputReport formats outputs one per line. A path is green when it contains a
// glob or exists, and has a red background otherwise.
func OutputReport(fsys afero.Fs, outputs []string) string {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	ok := color.New(color.FgGreen)
	missing := color.New(color.BgRed)
	lines := make([]string, 0, len(outputs))
	for _, p := range outputs {
		if strings.Contains(p, "*") {
			lines = append(lines, ok.Sprint(p))
			continue
		}
		if exists, _ := afero.Exists(fsys, p); exists {
			lines = append(lines, ok.Sprint(p))
			continue
		}
		lines = append(lines, missing.Sprint(p))
	}
	return strings.Join(lines, "\n")
}
