// Package video joins the per-chunk rendered parts back into one continuous
// file. The fast path is the ffmpeg concat demuxer with stream copy, which
// is lossless because every part came out of the same rendering worker with
// identical codec parameters. A re-encode fallback covers the rare case
// where the parts disagree.
package video

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-lipsync/internal/ffmpeg"
)

// Reassembler concatenates rendered part files in order.
type Reassembler struct {
	ffmpegPath string
	runner     ffmpeg.Runner
	warnWriter io.Writer
}

// ReassemblerOption configures a Reassembler.
type ReassemblerOption func(*Reassembler)

// WithRunner sets a custom command runner. Used by tests.
func WithRunner(r ffmpeg.Runner) ReassemblerOption {
	return func(re *Reassembler) {
		re.runner = r
	}
}

// WithWarnWriter sets the destination for warnings. Defaults to os.Stderr.
func WithWarnWriter(w io.Writer) ReassemblerOption {
	return func(re *Reassembler) {
		if w != nil {
			re.warnWriter = w
		}
	}
}

// NewReassembler creates a Reassembler using the given ffmpeg binary.
func NewReassembler(ffmpegPath string, opts ...ReassemblerOption) (*Reassembler, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("%w: ffmpeg path is required", ErrStitch)
	}

	re := &Reassembler{
		ffmpegPath: ffmpegPath,
		runner:     ffmpeg.NewRunner(),
		warnWriter: os.Stderr,
	}
	for _, opt := range opts {
		opt(re)
	}
	return re, nil
}

// Stitch joins parts, in the given order, into outPath. Every part must
// exist and be non-empty. A single part is copied as-is. Stream copy is
// tried first; if the demuxer rejects it the parts are re-encoded, and the
// fallback is reported on the warn writer since it changes the bytes.
func (re *Reassembler) Stitch(ctx context.Context, parts []string, outPath string) error {
	if len(parts) == 0 {
		return fmt.Errorf("%w: no parts to join", ErrStitch)
	}

	for i, part := range parts {
		info, err := os.Stat(part)
		if err != nil {
			return fmt.Errorf("%w: part %d missing: %s", ErrStitch, i, part)
		}
		if info.Size() == 0 {
			return fmt.Errorf("%w: part %d is empty: %s", ErrStitch, i, part)
		}
	}

	if len(parts) == 1 {
		if err := copyFile(parts[0], outPath); err != nil {
			return fmt.Errorf("%w: copy single part: %v", ErrStitch, err)
		}
		return nil
	}

	listFile, err := writeConcatList(parts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStitch, err)
	}
	defer func() { _ = os.Remove(listFile) }()

	copyArgs := []string{"-y", "-f", "concat", "-safe", "0", "-i", listFile, "-c", "copy", outPath}
	if err := re.runner.Run(ctx, re.ffmpegPath, copyArgs); err == nil {
		return nil
	}

	fmt.Fprintln(re.warnWriter, "warning: lossless concat failed, re-encoding parts")

	encodeArgs := []string{
		"-y", "-f", "concat", "-safe", "0", "-i", listFile,
		"-c:v", "libx264", "-preset", "fast", "-crf", "23",
		"-c:a", "aac",
		outPath,
	}
	if err := re.runner.Run(ctx, re.ffmpegPath, encodeArgs); err != nil {
		_ = os.Remove(outPath)
		return fmt.Errorf("%w: re-encode fallback: %v", ErrStitch, err)
	}
	return nil
}

// writeConcatList writes the part paths in the concat demuxer list format.
// Single quotes in paths are escaped per the demuxer's quoting rules.
func writeConcatList(parts []string) (string, error) {
	f, err := os.CreateTemp("", "lipsync-concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}

	var b strings.Builder
	for _, part := range parts {
		abs, err := filepath.Abs(part)
		if err != nil {
			abs = part
		}
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}

	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write concat list: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close concat list: %w", err)
	}
	return f.Name(), nil
}

// copyFile copies src to dst, replacing dst if it exists.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
