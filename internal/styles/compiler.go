// Package styles compiles the Sass entry and post-processes the resulting CSS.
package styles

import (
	"bytes"
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path"
	"strings"
)

// ErrCompilerNotFound is returned when the Sass binary is not on PATH.
var ErrCompilerNotFound = stdErrors.New("sass compiler not found")

// ErrCompileFailed wraps syntax and I/O errors reported by the compiler.
var ErrCompileFailed = stdErrors.New("sass compilation failed")

// CompileRequest describes one Sass compilation.
type CompileRequest struct {
	// Entry is the entry file path, used for syntax detection and diagnostics.
	Entry string
	// Source is the entry file content.
	Source []byte
	// LoadPaths are searched for @use and @import targets.
	LoadPaths []string
	// SourceMaps embeds an inline source map in the output.
	SourceMaps bool
}

// Compiler turns a Sass entry into CSS.
type Compiler interface {
	Compile(ctx context.Context, req CompileRequest) ([]byte, error)
}

// SassCompiler invokes the Dart Sass command line binary.
type SassCompiler struct {
	// Binary is the executable name or path; empty means "sass".
	Binary string
}

// NewSassCompiler returns a compiler using binary.
func NewSassCompiler(binary string) *SassCompiler {
	return &SassCompiler{Binary: binary}
}

// Args returns the command line arguments used for req.
func (c *SassCompiler) Args(req CompileRequest) []string {
	args := []string{"--stdin", "--style=expanded"}
	if strings.EqualFold(path.Ext(req.Entry), ".sass") {
		args = append(args, "--indented")
	}
	seen := make(map[string]struct{}, len(req.LoadPaths)+1)
	loadPaths := append([]string{path.Dir(req.Entry)}, req.LoadPaths...)
	for _, p := range loadPaths {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		args = append(args, "--load-path="+p)
	}
	if req.SourceMaps {
		args = append(args, "--embed-source-map", "--embed-sources")
	} else {
		args = append(args, "--no-source-map")
	}
	return args
}

func (c *SassCompiler) Compile(ctx context.Context, req CompileRequest) ([]byte, error) {
	binary := c.Binary
	if binary == "" {
		binary = "sass"
	}
	bin, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompilerNotFound, err)
	}

	// #nosec G204 - binary comes from configuration
	cmd := exec.CommandContext(ctx, bin, c.Args(req)...)
	cmd.Stdin = bytes.NewReader(req.Source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("Invoking sass", "binary", bin, "entry", req.Entry)

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%w: %s: %w: %s", ErrCompileFailed, req.Entry, err, msg)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrCompileFailed, req.Entry, err)
	}
	if w := strings.TrimSpace(stderr.String()); w != "" {
		slog.Warn("sass stderr", "entry", req.Entry, "error_output", w)
	}
	return stdout.Bytes(), nil
}
