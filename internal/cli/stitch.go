package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
)

// StitchCmd creates the stitch command: join already-rendered parts into a
// final video. This is the resume path after a run whose chunks all rendered
// but whose stitch step failed, and it never touches the remote providers.
func StitchCmd(env *Env) *cobra.Command {
	var (
		output    string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "stitch <parts-dir>",
		Short: "Join rendered part files into a single video",
		Long: `Join rendered part files into a single video.

The directory is scanned for *.mp4 files, which are joined in name order.
Run workspaces name their parts part_000.mp4, part_001.mp4, ... so the
lexical order matches chunk order; a run directory's video/ subdirectory
can be passed directly.`,
		Example: `  lipsync stitch run-1a2b3c4d/video
  lipsync stitch ./parts -o final.mp4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStitch(cmd, env, args[0], output, overwrite)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "final.mp4", "Output file path")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the output file if it exists")

	return cmd
}

func runStitch(cmd *cobra.Command, env *Env, partsDir, output string, overwrite bool) error {
	ctx := cmd.Context()

	parts, err := collectParts(partsDir)
	if err != nil {
		return err
	}

	if !overwrite {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("%w: %s (use --overwrite)", ErrOutputExists, output)
		}
	}

	ffmpegPath, err := env.ResolveFFmpeg()
	if err != nil {
		return err
	}

	stitcher, err := env.NewReassembler(ffmpegPath, env.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "joining %d part(s)\n", len(parts))
	if err := stitcher.Stitch(ctx, parts, output); err != nil {
		return err
	}

	fmt.Fprintf(env.Stdout, "final video: %s\n", output)
	return nil
}

// collectParts returns the .mp4 files in dir sorted by name.
func collectParts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, dir)
		}
		return nil, fmt.Errorf("read parts directory: %w", err)
	}

	var parts []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".mp4" {
			continue
		}
		parts = append(parts, filepath.Join(dir, entry.Name()))
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoParts, dir)
	}

	slices.Sort(parts)
	return parts, nil
}
