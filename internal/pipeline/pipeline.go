// Package pipeline orchestrates a full rendering run: prepare the shared
// image, segment the source audio at silences, drive one remote job per
// chunk, and stitch the rendered parts back into a single video. Chunk
// failures are collected as results, never panics or mid-run exits; the
// orchestrator alone decides whether a failure halts the batch.
package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-lipsync/internal/audio"
	"github.com/alnah/go-lipsync/internal/provider"
	"github.com/alnah/go-lipsync/internal/render"
)

// ErrSkipped marks chunks that were never submitted because an earlier
// chunk failed under the fail-fast policy.
var ErrSkipped = errors.New("chunk skipped after earlier failure")

// Segmenter splits source audio into chunk files.
type Segmenter interface {
	Segment(ctx context.Context, audioPath, outDir string) ([]audio.Chunk, error)
}

// ImagePreparer produces the padded target-resolution image.
type ImagePreparer interface {
	ResizeWithPadding(ctx context.Context, src, dst string, width, height int) error
}

// ChunkRenderer drives one chunk through its remote job lifecycle.
type ChunkRenderer interface {
	Run(ctx context.Context, index int, p provider.Payload, destPath string) render.Result
}

// Stitcher joins rendered parts into the final video.
type Stitcher interface {
	Stitch(ctx context.Context, parts []string, outPath string) error
}

// Params carries the per-run rendering settings.
type Params struct {
	Width        int
	Height       int
	Prompt       string
	ForceOffload bool
	Workers      int  // parallel in-flight jobs; 1 means sequential
	FailFast     bool // halt further submissions on first chunk failure
	DryRun       bool // prepare image and chunks, submit nothing
}

// Orchestrator runs the segment → render → stitch pipeline.
type Orchestrator struct {
	segmenter Segmenter
	preparer  ImagePreparer
	renderer  ChunkRenderer
	stitcher  Stitcher
	workDir   string
	progress  io.Writer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkDir sets the directory run workspaces are created under.
// Defaults to the current directory.
func WithWorkDir(dir string) Option {
	return func(o *Orchestrator) {
		if dir != "" {
			o.workDir = dir
		}
	}
}

// WithProgressWriter sets the destination for progress lines.
// Defaults to io.Discard.
func WithProgressWriter(w io.Writer) Option {
	return func(o *Orchestrator) {
		if w != nil {
			o.progress = w
		}
	}
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(seg Segmenter, prep ImagePreparer, rend ChunkRenderer, st Stitcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		segmenter: seg,
		preparer:  prep,
		renderer:  rend,
		stitcher:  st,
		workDir:   ".",
		progress:  io.Discard,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the full pipeline for one audio/image pair. The returned
// Report is non-nil whenever a run workspace was created, including on
// partial failure; artifacts stay on disk for inspection and resumption.
func (o *Orchestrator) Run(ctx context.Context, audioPath, imagePath string, params Params) (*Report, error) {
	start := time.Now()

	runDir, err := o.createRunDir()
	if err != nil {
		return nil, err
	}

	report := &Report{RunDir: runDir}

	imageB64, err := o.prepareImage(ctx, imagePath, runDir, params)
	if err != nil {
		report.Elapsed = time.Since(start)
		return report, err
	}

	chunks, err := o.segmenter.Segment(ctx, audioPath, filepath.Join(runDir, "audio"))
	if err != nil {
		report.Elapsed = time.Since(start)
		return report, err
	}
	report.Chunks = chunks
	fmt.Fprintf(o.progress, "segmented into %d chunk(s)\n", len(chunks))

	if params.DryRun {
		report.Elapsed = time.Since(start)
		return report, nil
	}

	if params.Workers > 1 {
		report.Results = o.renderParallel(ctx, chunks, imageB64, runDir, params)
	} else {
		report.Results = o.renderSequential(ctx, chunks, imageB64, runDir, params)
	}

	if !report.AllSucceeded() {
		report.Elapsed = time.Since(start)
		return report, fmt.Errorf("%d of %d chunks failed", len(report.Failed()), len(chunks))
	}

	parts := make([]string, len(report.Results))
	for i, res := range report.Results {
		parts[i] = res.VideoPath
	}

	finalPath := filepath.Join(runDir, "final.mp4")
	if err := o.stitcher.Stitch(ctx, parts, finalPath); err != nil {
		report.Elapsed = time.Since(start)
		return report, err
	}

	report.FinalVideo = finalPath
	report.Elapsed = time.Since(start)
	return report, nil
}

// createRunDir creates a fresh workspace keyed by a short run ID, with the
// audio and video subdirectories the stages write into.
func (o *Orchestrator) createRunDir() (string, error) {
	runID := uuid.NewString()[:8]
	runDir := filepath.Join(o.workDir, "run-"+runID)

	for _, dir := range []string{runDir, filepath.Join(runDir, "audio"), filepath.Join(runDir, "video")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create run workspace: %w", err)
		}
	}
	return runDir, nil
}

// prepareImage pads the source image to the target resolution and returns
// its base64 encoding, computed once and shared by every submission.
func (o *Orchestrator) prepareImage(ctx context.Context, imagePath, runDir string, params Params) (string, error) {
	prepared := filepath.Join(runDir, "image.png")
	if err := o.preparer.ResizeWithPadding(ctx, imagePath, prepared, params.Width, params.Height); err != nil {
		return "", err
	}
	return encodeFile(prepared)
}

func (o *Orchestrator) renderSequential(ctx context.Context, chunks []audio.Chunk, imageB64, runDir string, params Params) []render.Result {
	results := make([]render.Result, len(chunks))

	halted := false
	for i, chunk := range chunks {
		if halted {
			results[i] = render.Result{Index: i, Err: ErrSkipped}
			continue
		}

		results[i] = o.renderOne(ctx, i, chunk, imageB64, runDir, params)
		if results[i].Err != nil && params.FailFast {
			halted = true
		}
	}
	return results
}

// renderParallel keeps up to Workers jobs in flight. Results land at their
// chunk index so output order never depends on completion order. Under
// fail-fast the group context is cancelled on the first failure, aborting
// in-flight polls and preventing further submissions.
func (o *Orchestrator) renderParallel(ctx context.Context, chunks []audio.Chunk, imageB64, runDir string, params Params) []render.Result {
	results := make([]render.Result, len(chunks))
	for i := range results {
		results[i] = render.Result{Index: i, Err: ErrSkipped}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(params.Workers)

	for i, chunk := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := o.renderOne(gctx, i, chunk, imageB64, runDir, params)
			results[i] = res
			if res.Err != nil && params.FailFast {
				return res.Err
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) renderOne(ctx context.Context, index int, chunk audio.Chunk, imageB64, runDir string, params Params) render.Result {
	audioB64, err := encodeFile(chunk.Path)
	if err != nil {
		return render.Result{Index: index, Err: err}
	}

	payload := provider.Payload{
		ImageBase64:  imageB64,
		AudioBase64:  audioB64,
		Width:        params.Width,
		Height:       params.Height,
		Prompt:       params.Prompt,
		ForceOffload: params.ForceOffload,
	}

	destPath := filepath.Join(runDir, "video", fmt.Sprintf("part_%03d.mp4", index))
	fmt.Fprintf(o.progress, "rendering %s\n", chunk.String())
	return o.renderer.Run(ctx, index, payload, destPath)
}

func encodeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
