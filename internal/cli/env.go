package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alnah/go-lipsync/internal/audio"
	"github.com/alnah/go-lipsync/internal/config"
	"github.com/alnah/go-lipsync/internal/ffmpeg"
	"github.com/alnah/go-lipsync/internal/media"
	"github.com/alnah/go-lipsync/internal/pipeline"
	"github.com/alnah/go-lipsync/internal/provider"
	"github.com/alnah/go-lipsync/internal/provider/beam"
	"github.com/alnah/go-lipsync/internal/provider/runpod"
	"github.com/alnah/go-lipsync/internal/render"
	"github.com/alnah/go-lipsync/internal/video"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing commands in isolation.
// All fields have production defaults via DefaultEnv().
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// Factories for domain objects.
	ResolveFFmpeg  func() (string, error)
	NewProvider    func(r config.Render) (provider.Client, error)
	NewSegmenter   func(ffmpegPath string, cfg config.Config, warn io.Writer) (pipeline.Segmenter, error)
	NewPreparer    func(ffmpegPath string) (pipeline.ImagePreparer, error)
	NewRenderer    func(client provider.Client, cfg config.Config, progress io.Writer) pipeline.ChunkRenderer
	NewReassembler func(ffmpegPath string, warn io.Writer) (pipeline.Stitcher, error)
}

// DefaultEnv returns an Env wired with production implementations.
func DefaultEnv() *Env {
	return &Env{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.Getenv,
		Now:    time.Now,

		ResolveFFmpeg: ffmpeg.Resolve,

		NewProvider: func(r config.Render) (provider.Client, error) {
			switch r.Provider {
			case config.ProviderRunPod:
				return runpod.NewClient(r.EndpointID)
			case config.ProviderBeam:
				return beam.NewClient(r.QueueURL)
			default:
				return nil, fmt.Errorf("unknown provider %q", r.Provider)
			}
		},

		NewSegmenter: func(ffmpegPath string, cfg config.Config, warn io.Writer) (pipeline.Segmenter, error) {
			return audio.NewSegmenter(ffmpegPath,
				audio.WithTargetDuration(cfg.TargetDuration()),
				audio.WithMinSilence(cfg.MinSilence()),
				audio.WithNoiseDB(cfg.Chunking.NoiseDB),
				audio.WithKeepSilence(cfg.KeepSilence()),
				audio.WithWarnWriter(warn),
			)
		},

		NewPreparer: func(ffmpegPath string) (pipeline.ImagePreparer, error) {
			return media.NewPreparer(ffmpegPath)
		},

		NewRenderer: func(client provider.Client, cfg config.Config, progress io.Writer) pipeline.ChunkRenderer {
			return render.NewRunner(client,
				render.WithPollInterval(cfg.PollInterval()),
				render.WithJobTimeout(cfg.JobTimeout()),
				render.WithProgressWriter(progress),
			)
		},

		NewReassembler: func(ffmpegPath string, warn io.Writer) (pipeline.Stitcher, error) {
			return video.NewReassembler(ffmpegPath, video.WithWarnWriter(warn))
		},
	}
}
