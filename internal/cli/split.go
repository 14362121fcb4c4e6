package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// SplitCmd creates the split command: segment audio without rendering,
// useful for inspecting where the silence cuts land before paying for jobs.
func SplitCmd(env *Env) *cobra.Command {
	var (
		configPath string
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "split <audio-file>",
		Short: "Split an audio file into chunks at silence points",
		Example: `  lipsync split voiceover.wav
  lipsync split talk.mp3 -o ./chunks -c render.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, env, args[0], configPath, outDir)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./lipsync.toml if present)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "chunks", "Directory chunk files are written to")

	return cmd
}

func runSplit(cmd *cobra.Command, env *Env, audioPath, configPath, outDir string) error {
	ctx := cmd.Context()

	if err := checkInputFile(audioPath, supportedAudioFormats, "audio"); err != nil {
		return err
	}

	cfg, err := loadConfig(runFlags{configPath: configPath})
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

	chunks, err := segmenter.Segment(ctx, audioPath, outDir)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(env.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Chunk", "Start", "End", "Duration", "File"})

	var total time.Duration
	for _, chunk := range chunks {
		tw.AppendRow(table.Row{
			chunk.Index,
			chunk.StartTime.Round(time.Millisecond),
			chunk.EndTime.Round(time.Millisecond),
			chunk.Duration().Round(time.Millisecond),
			chunk.Path,
		})
		total += chunk.Duration()
	}
	tw.Render()

	fmt.Fprintf(env.Stdout, "%d chunk(s), %s total\n", len(chunks), total.Round(time.Second))
	return nil
}
