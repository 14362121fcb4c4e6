package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-lipsync/internal/audio"
	"github.com/alnah/go-lipsync/internal/cli"
	"github.com/alnah/go-lipsync/internal/ffmpeg"
	"github.com/alnah/go-lipsync/internal/media"
	"github.com/alnah/go-lipsync/internal/provider"
	"github.com/alnah/go-lipsync/internal/provider/beam"
	"github.com/alnah/go-lipsync/internal/provider/runpod"
	"github.com/alnah/go-lipsync/internal/video"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitRender     = 5
	ExitStitch     = 6
	ExitInterrupt  = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env := cli.DefaultEnv()

	rootCmd := &cobra.Command{
		Use:     "lipsync",
		Short:   "Render lip-synced videos from audio tracks and still images",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.RunCmd(env))
	rootCmd.AddCommand(cli.SplitCmd(env))
	rootCmd.AddCommand(cli.StitchCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors: Cobra flag/arg parsing failures. Cobra doesn't expose
	// typed errors, so known message patterns are matched instead.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup: missing tools or credentials.
	if errors.Is(err, ffmpeg.ErrNotFound) ||
		errors.Is(err, runpod.ErrAPIKeyNotSet) || errors.Is(err, runpod.ErrEndpointIDRequired) ||
		errors.Is(err, beam.ErrTokenNotSet) || errors.Is(err, beam.ErrQueueURLRequired) {
		return ExitSetup
	}

	// Validation: bad inputs or configuration.
	if errors.Is(err, cli.ErrFileNotFound) || errors.Is(err, cli.ErrUnsupportedFormat) ||
		errors.Is(err, cli.ErrOutputExists) || errors.Is(err, cli.ErrNoParts) ||
		errors.Is(err, audio.ErrInvalidInput) || errors.Is(err, audio.ErrSegmentationFailed) ||
		errors.Is(err, media.ErrInvalidImage) || errors.Is(err, media.ErrInvalidDimensions) {
		return ExitValidation
	}

	// Render: the remote job layer failed.
	if errors.Is(err, provider.ErrSubmission) || errors.Is(err, provider.ErrRemoteJob) ||
		errors.Is(err, provider.ErrPollTimeout) || errors.Is(err, provider.ErrEmptyOutput) {
		return ExitRender
	}

	if errors.Is(err, video.ErrStitch) {
		return ExitStitch
	}

	return ExitGeneral
}

// isCobraUsageError detects Cobra's own flag and argument errors by their
// stable message prefixes.
func isCobraUsageError(err error) bool {
	msg := err.Error()
	patterns := []string{
		"unknown flag:",
		"unknown shorthand flag:",
		"unknown command",
		"invalid argument",
		"accepts ",
		"requires at least",
		"flag needs an argument:",
	}
	for _, p := range patterns {
		if strings.HasPrefix(msg, p) || strings.Contains(msg, ": "+p) {
			return true
		}
	}
	return false
}
