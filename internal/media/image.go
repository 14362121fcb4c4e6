// Package media prepares the shared source image for rendering.
//
// The remote renderer expects the image at the exact output resolution, so
// the source is scaled to fit and letterboxed with black padding before the
// run starts. This happens once per run; every chunk submission reuses the
// same prepared image.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alnah/go-lipsync/internal/ffmpeg"
)

// Sentinel errors for image preparation.
var (
	// ErrInvalidImage indicates the source image is missing or unreadable.
	ErrInvalidImage = errors.New("invalid image input")

	// ErrInvalidDimensions indicates non-positive target dimensions.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
)

// Preparer resizes images to the rendering resolution.
type Preparer struct {
	ffmpegPath string
	runner     ffmpeg.Runner
}

// PreparerOption configures a Preparer.
type PreparerOption func(*Preparer)

// WithRunner sets a custom FFmpeg runner (for testing).
func WithRunner(r ffmpeg.Runner) PreparerOption {
	return func(p *Preparer) {
		p.runner = r
	}
}

// NewPreparer creates a Preparer.
func NewPreparer(ffmpegPath string, opts ...PreparerOption) (*Preparer, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}

	p := &Preparer{
		ffmpegPath: ffmpegPath,
		runner:     ffmpeg.NewRunner(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ResizeWithPadding scales src to fit within w x h preserving aspect ratio,
// centers it on black padding to reach the exact dimensions, and writes the
// result to dst as a single frame.
func (p *Preparer) ResizeWithPadding(ctx context.Context, src, dst string, w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, w, h)
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	// scale fits within the target keeping proportions; pad centers on black.
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
		w, h, w, h)

	args := []string{
		"-y",
		"-i", src,
		"-vf", filter,
		"-frames:v", "1",
		dst,
	}

	if err := p.runner.Run(ctx, p.ffmpegPath, args); err != nil {
		return fmt.Errorf("%w: resize failed: %v", ErrInvalidImage, err)
	}
	return nil
}
