package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-lipsync/internal/config"
	"github.com/alnah/go-lipsync/internal/pipeline"
)

// Audio formats the rendering workers accept as chunk input.
var supportedAudioFormats = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
}

// Image formats accepted for the shared reference frame.
var supportedImageFormats = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// runFlags are the flag overrides layered on top of the config file.
type runFlags struct {
	configPath   string
	provider     string
	endpointID   string
	queueURL     string
	width        int
	height       int
	prompt       string
	forceOffload bool
	workers      int
	onError      string
	workDir      string
	dryRun       bool
}

// RunCmd creates the run command: the full segment → render → stitch pipeline.
func RunCmd(env *Env) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <audio-file> <image-file>",
		Short: "Render a lip-synced video from an audio track and a still image",
		Long: `Render a lip-synced video from an audio track and a still image.

The audio is split into chunks at natural silence points, each chunk is
rendered as an independent remote job, and the finished parts are joined
losslessly into one video. On failure the run directory keeps every
artifact produced so far; "lipsync stitch" can finish a run whose parts
all rendered.

Credentials come from the environment: RUNPOD_API_KEY for the runpod
provider, BEAM_TOKEN for beam.`,
		Example: `  lipsync run voiceover.wav host.png
  lipsync run talk.mp3 face.jpg --provider beam --queue-url https://...
  lipsync run talk.wav face.png --workers 3 --on-error continue
  lipsync run talk.wav face.png --dry-run`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, env, args[0], args[1], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default: ./lipsync.toml if present)")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "Rendering provider: runpod, beam")
	cmd.Flags().StringVar(&flags.endpointID, "endpoint", "", "RunPod serverless endpoint ID")
	cmd.Flags().StringVar(&flags.queueURL, "queue-url", "", "Beam task queue webhook URL")
	cmd.Flags().IntVar(&flags.width, "width", 0, "Output video width")
	cmd.Flags().IntVar(&flags.height, "height", 0, "Output video height")
	cmd.Flags().StringVar(&flags.prompt, "prompt", "", "Rendering prompt passed to the worker")
	cmd.Flags().BoolVar(&flags.forceOffload, "force-offload", false, "Ask the worker to offload models between chunks")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Concurrent remote jobs (default: 1, sequential)")
	cmd.Flags().StringVar(&flags.onError, "on-error", "", "Chunk failure policy: fail-fast, continue")
	cmd.Flags().StringVarP(&flags.workDir, "workdir", "w", "", "Directory run workspaces are created under")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Prepare image and chunks, submit nothing")

	return cmd
}

func runRun(cmd *cobra.Command, env *Env, audioPath, imagePath string, flags runFlags) error {
	ctx := cmd.Context()

	if err := checkInputFile(audioPath, supportedAudioFormats, "audio"); err != nil {
		return err
	}
	if err := checkInputFile(imagePath, supportedImageFormats, "image"); err != nil {
		return err
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	ffmpegPath, err := env.ResolveFFmpeg()
	if err != nil {
		return err
	}

	segmenter, err := env.NewSegmenter(ffmpegPath, cfg, env.Stderr)
	if err != nil {
		return err
	}
	preparer, err := env.NewPreparer(ffmpegPath)
	if err != nil {
		return err
	}
	stitcher, err := env.NewReassembler(ffmpegPath, env.Stderr)
	if err != nil {
		return err
	}

	var renderer pipeline.ChunkRenderer
	if flags.dryRun {
		renderer = noopRenderer{}
	} else {
		client, err := env.NewProvider(cfg.Render)
		if err != nil {
			return err
		}
		renderer = env.NewRenderer(client, cfg, env.Stderr)
		fmt.Fprintf(env.Stderr, "provider: %s\n", client.Name())
	}

	orch := pipeline.NewOrchestrator(segmenter, preparer, renderer, stitcher,
		pipeline.WithWorkDir(cfg.Output.WorkDir),
		pipeline.WithProgressWriter(env.Stderr),
	)

	params := pipeline.Params{
		Width:        cfg.Render.Width,
		Height:       cfg.Render.Height,
		Prompt:       cfg.Render.Prompt,
		ForceOffload: cfg.Render.ForceOffload,
		Workers:      cfg.Render.Workers,
		FailFast:     cfg.Render.OnError == config.OnErrorFailFast,
		DryRun:       flags.dryRun,
	}

	report, runErr := orch.Run(ctx, audioPath, imagePath, params)
	if report != nil {
		if flags.dryRun && runErr == nil {
			printChunkPlan(env.Stdout, report)
		} else if len(report.Results) > 0 {
			printSummary(env.Stdout, report)
		}
		if runErr != nil && report.RunDir != "" {
			fmt.Fprintf(env.Stderr, "artifacts preserved in %s\n", report.RunDir)
		}
	}
	if runErr != nil {
		// Surface the first chunk failure so the exit code reflects it.
		if report != nil {
			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("run failed: %w", failed[0].Err)
			}
		}
		return runErr
	}

	fmt.Fprintf(env.Stdout, "final video: %s\n", report.FinalVideo)
	return nil
}

// loadConfig reads the config file and applies flag overrides on top.
func loadConfig(flags runFlags) (config.Config, error) {
	path := flags.configPath
	explicit := path != ""
	if !explicit {
		path = "lipsync.toml"
	}

	cfg, _, err := config.Load(path, explicit)
	if err != nil {
		return cfg, err
	}

	if flags.provider != "" {
		cfg.Render.Provider = flags.provider
	}
	if flags.endpointID != "" {
		cfg.Render.EndpointID = flags.endpointID
	}
	if flags.queueURL != "" {
		cfg.Render.QueueURL = flags.queueURL
	}
	if flags.width > 0 {
		cfg.Render.Width = flags.width
	}
	if flags.height > 0 {
		cfg.Render.Height = flags.height
	}
	if flags.prompt != "" {
		cfg.Render.Prompt = flags.prompt
	}
	if flags.forceOffload {
		cfg.Render.ForceOffload = true
	}
	if flags.workers > 0 {
		cfg.Render.Workers = flags.workers
	}
	if flags.onError != "" {
		cfg.Render.OnError = flags.onError
	}
	if flags.workDir != "" {
		cfg.Output.WorkDir = flags.workDir
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// checkInputFile verifies the file exists and carries a supported extension.
func checkInputFile(path string, formats map[string]bool, kind string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("cannot access %s file: %w", kind, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !formats[ext] {
		return fmt.Errorf("%w: %s %q (supported: %s)",
			ErrUnsupportedFormat, kind, ext, formatList(formats))
	}
	return nil
}
