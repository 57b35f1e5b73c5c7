package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNothingToMerge is returned when Merge is called without parts.
var ErrNothingToMerge = errors.New("no PDF parts to merge")

// Merger concatenates PDF files, in order, into out.
type Merger interface {
	Merge(ctx context.Context, parts []string, out string) error
}

// CommandRunner runs an external program and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the program with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

// GhostscriptMerger merges with Ghostscript's pdfwrite device.
type GhostscriptMerger struct {
	// Binary defaults to "gs".
	Binary string
	// Run defaults to ExecRunner.
	Run CommandRunner
}

// GhostscriptBinary is the executable GhostscriptMerger needs on PATH.
const GhostscriptBinary = "gs"

func (m GhostscriptMerger) Merge(ctx context.Context, parts []string, out string) error {
	if len(parts) == 0 {
		return ErrNothingToMerge
	}
	bin := m.Binary
	if bin == "" {
		bin = GhostscriptBinary
	}
	run := m.Run
	if run == nil {
		run = ExecRunner
	}

	args := append([]string{
		"-dBATCH",
		"-dNOPAUSE",
		"-q",
		"-sDEVICE=pdfwrite",
		"-sOutputFile=" + out,
	}, parts...)

	output, err := run(ctx, bin, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("%s failed: %w: %s", bin, err, msg)
		}
		return fmt.Errorf("%s failed: %w", bin, err)
	}
	return nil
}
