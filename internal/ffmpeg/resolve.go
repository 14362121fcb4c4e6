// Package ffmpeg locates and executes the FFmpeg binary.
//
// FFmpeg is an external tool, never a Go dependency. Every media operation
// in this project (silence detection, chunk extraction, image padding,
// concatenation) shells out to the resolved binary.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Environment variable for a custom ffmpeg path.
const envFFmpegPath = "FFMPEG_PATH"

// minMajorVersion is the minimum supported ffmpeg version.
// Older versions lack silencedetect fixes and concat demuxer behavior we rely on.
const minMajorVersion = 4

// Resolve finds ffmpeg using the following precedence:
//  1. FFMPEG_PATH environment variable (error if set but invalid)
//  2. System PATH
//
// Returns the path to the ffmpeg binary.
func Resolve() (string, error) {
	if envPath := os.Getenv(envFFmpegPath); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found",
				ErrNotFound, envFFmpegPath, envPath)
		}
		return envPath, nil
	}

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w: install ffmpeg or set %s", ErrNotFound, envFFmpegPath)
}

// CheckVersion verifies that ffmpeg meets minimum version requirements.
// Prints a warning to stderr if the version is below minimum but doesn't fail.
func CheckVersion(ctx context.Context, ffmpegPath string) {
	cmd := exec.CommandContext(ctx, ffmpegPath, "-version")
	output, err := cmd.Output()
	if err != nil {
		return // Can't check version, proceed anyway
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) == 0 {
		return
	}

	// Parse version from output like "ffmpeg version 6.1.1 Copyright..."
	var major int
	_, err = fmt.Sscanf(lines[0], "ffmpeg version %d", &major)
	if err != nil {
		// Alternative format "ffmpeg version n6.1.1..."
		if _, err = fmt.Sscanf(lines[0], "ffmpeg version n%d", &major); err != nil {
			return
		}
	}

	if major < minMajorVersion {
		fmt.Fprintf(os.Stderr, "Warning: ffmpeg version %d detected, version %d+ recommended\n",
			major, minMajorVersion)
	}
}
