package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner executes FFmpeg commands. The two methods match the two ways this
// project uses FFmpeg: Probe runs a command only for its stderr diagnostics
// (silencedetect, duration probing), Run requires the command to succeed
// (chunk extraction, padding, concatenation).
type Runner interface {
	// Probe executes ffmpeg and returns its stderr output.
	// FFmpeg writes diagnostics to stderr and often exits non-zero for
	// valid probe operations, so the exit status is not treated as an error.
	Probe(ctx context.Context, ffmpegPath string, args []string) (string, error)

	// Run executes ffmpeg and fails on non-zero exit, returning the
	// captured stderr in the error for debugging.
	Run(ctx context.Context, ffmpegPath string, args []string) error
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// NewRunner returns the production command runner.
func NewRunner() ExecRunner {
	return ExecRunner{}
}

// Probe implements Runner.
func (ExecRunner) Probe(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	// #nosec G204 -- ffmpegPath comes from Resolve, args are built internally
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// Exit status intentionally ignored; stderr contains the useful data
	// even when ffmpeg reports failure (e.g. "-f null -" probes).
	_ = cmd.Run()

	return stderr.String(), nil
}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, ffmpegPath string, args []string) error {
	// #nosec G204 -- ffmpegPath comes from Resolve, args are built internally
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %v: %w\nOutput: %s", args, err, stderr.String())
	}
	return nil
}

// Compile-time interface verification.
var _ Runner = ExecRunner{}
