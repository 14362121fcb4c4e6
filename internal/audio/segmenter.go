package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alnah/go-lipsync/internal/ffmpeg"
)

// Default segmentation parameters.
const (
	// DefaultTargetDuration is the target chunk duration. The remote
	// renderer handles short clips only; 45s keeps jobs well inside its
	// comfort zone while amortizing per-job overhead.
	DefaultTargetDuration = 45 * time.Second

	// DefaultMinSilence is the minimum silence duration treated as a
	// sentence boundary. 500ms catches natural pauses in speech without
	// over-splitting.
	DefaultMinSilence = 500 * time.Millisecond

	// DefaultNoiseDB is the silence detection threshold in dBFS.
	// -40dB suits clean voice recordings; raise toward -30 for noisy sources.
	DefaultNoiseDB = -40.0

	// DefaultKeepSilence is how much trailing silence each sentence retains
	// so chunk ends don't sound truncated.
	DefaultKeepSilence = 200 * time.Millisecond
)

// Segmenter splits a long audio track into ordered, contiguous chunks by
// detecting silences, grouping the sentences between them, and greedily
// packing sentences until the target duration is reached.
type Segmenter struct {
	ffmpegPath  string
	runner      ffmpeg.Runner
	target      time.Duration
	minSilence  time.Duration
	noiseDB     float64
	keepSilence time.Duration
	warn        io.Writer
}

// SegmenterOption configures a Segmenter.
type SegmenterOption func(*Segmenter)

// WithTargetDuration sets the target chunk duration.
func WithTargetDuration(d time.Duration) SegmenterOption {
	return func(s *Segmenter) {
		if d > 0 {
			s.target = d
		}
	}
}

// WithMinSilence sets the minimum silence duration to detect.
func WithMinSilence(d time.Duration) SegmenterOption {
	return func(s *Segmenter) {
		if d > 0 {
			s.minSilence = d
		}
	}
}

// WithNoiseDB sets the silence detection threshold in dBFS.
// Lower values (more negative) require quieter audio to count as silence.
func WithNoiseDB(db float64) SegmenterOption {
	return func(s *Segmenter) {
		s.noiseDB = db
	}
}

// WithKeepSilence sets how much trailing silence each sentence retains.
func WithKeepSilence(d time.Duration) SegmenterOption {
	return func(s *Segmenter) {
		if d >= 0 {
			s.keepSilence = d
		}
	}
}

// WithRunner sets a custom FFmpeg runner (for testing).
func WithRunner(r ffmpeg.Runner) SegmenterOption {
	return func(s *Segmenter) {
		s.runner = r
	}
}

// WithWarnWriter sets the destination for non-fatal warnings.
func WithWarnWriter(w io.Writer) SegmenterOption {
	return func(s *Segmenter) {
		s.warn = w
	}
}

// NewSegmenter creates a Segmenter with functional options.
func NewSegmenter(ffmpegPath string, opts ...SegmenterOption) (*Segmenter, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}

	s := &Segmenter{
		ffmpegPath:  ffmpegPath,
		runner:      ffmpeg.NewRunner(),
		target:      DefaultTargetDuration,
		minSilence:  DefaultMinSilence,
		noiseDB:     DefaultNoiseDB,
		keepSilence: DefaultKeepSilence,
		warn:        os.Stderr,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Segment splits audioPath into chunk files under outDir, named with
// zero-padded indices (chunk_000.wav, chunk_001.wav, ...) so lexicographic
// order recovers playback order. The returned chunks are contiguous,
// non-overlapping, and cover the whole source.
//
// Inputs no longer than the target duration produce exactly one chunk.
// If no silence is detected in a longer input, the whole track is emitted
// as a single chunk and a warning is printed; there is no mid-waveform cut.
func (s *Segmenter) Segment(ctx context.Context, audioPath, outDir string) ([]Chunk, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	total, silences, err := s.probe(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: %s has zero duration", ErrInvalidInput, audioPath)
	}

	// Short inputs are never fragmented.
	if total <= s.target {
		return s.extractAll(ctx, audioPath, outDir, []span{{0, total}})
	}

	// Silence detector found nothing usable: deterministic fallback is a
	// single chunk of the whole track rather than an arbitrary waveform cut.
	if len(silences) == 0 {
		fmt.Fprintln(s.warn, "Warning: no silences detected, sending the whole track as one chunk")
		return s.extractAll(ctx, audioPath, outDir, []span{{0, total}})
	}

	cuts := s.sentenceCuts(silences, total)
	spans := packSentences(cuts, total, s.target)

	return s.extractAll(ctx, audioPath, outDir, spans)
}

// probe runs a single silencedetect pass, returning the track duration and
// the detected silence intervals.
func (s *Segmenter) probe(ctx context.Context, audioPath string) (time.Duration, []silencePoint, error) {
	args := []string{
		"-i", audioPath,
		"-af", fmt.Sprintf("silencedetect=noise=%ddB:d=%.3f",
			int(s.noiseDB),
			s.minSilence.Seconds()),
		"-f", "null",
		"-",
	}

	output, err := s.runner.Probe(ctx, s.ffmpegPath, args)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: silence detection failed: %v", ErrInvalidInput, err)
	}

	total, err := parseDurationOutput(output)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return total, parseSilenceOutput(output), nil
}

// sentenceCuts converts silence intervals into sentence boundaries. Each cut
// sits keepSilence into the silence so the preceding sentence keeps a short
// natural pause instead of ending abruptly.
func (s *Segmenter) sentenceCuts(silences []silencePoint, total time.Duration) []time.Duration {
	cuts := make([]time.Duration, 0, len(silences))
	for _, sil := range silences {
		if sil.length() < s.minSilence {
			continue
		}
		cut := min(sil.start+s.keepSilence, sil.end)
		if cut <= 0 || cut >= total {
			continue
		}
		cuts = append(cuts, cut)
	}
	return cuts
}

// span is a half-open time range within the source audio.
type span struct {
	start time.Duration
	end   time.Duration
}

// packSentences greedily groups the sentences delimited by cuts into spans
// whose durations stay strictly below target. A sentence that alone exceeds
// the target becomes its own span; it still ends at a silence boundary.
// The spans tile [0, total] exactly.
func packSentences(cuts []time.Duration, total, target time.Duration) []span {
	var spans []span

	chunkStart := time.Duration(0)
	running := time.Duration(0)
	prev := time.Duration(0)

	for _, cut := range cuts {
		sentence := cut - prev
		if sentence <= 0 {
			continue
		}
		if running > 0 && running+sentence >= target {
			spans = append(spans, span{chunkStart, prev})
			chunkStart = prev
			running = 0
		}
		running += sentence
		prev = cut
	}

	// The tail after the last cut belongs to the open chunk unless that
	// would push it over target.
	tail := total - prev
	if running > 0 && tail > 0 && running+tail >= target {
		spans = append(spans, span{chunkStart, prev})
		chunkStart = prev
	}
	spans = append(spans, span{chunkStart, total})

	return spans
}

// extractAll writes one chunk file per span and returns the chunk list.
// Already-created files are removed if a later extraction fails.
func (s *Segmenter) extractAll(ctx context.Context, audioPath, outDir string, spans []span) ([]Chunk, error) {
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}

	chunks := make([]Chunk, 0, len(spans))
	for i, sp := range spans {
		chunkPath := filepath.Join(outDir, fmt.Sprintf("chunk_%03d.wav", i))
		if err := s.extract(ctx, audioPath, chunkPath, sp); err != nil {
			for _, c := range chunks {
				_ = os.Remove(c.Path)
			}
			return nil, err
		}
		chunks = append(chunks, Chunk{
			Path:      chunkPath,
			Index:     i,
			StartTime: sp.start,
			EndTime:   sp.end,
		})
	}

	return chunks, nil
}

// extract copies one span of the source to chunkPath without re-encoding.
func (s *Segmenter) extract(ctx context.Context, audioPath, chunkPath string, sp span) error {
	args := []string{
		"-y",
		"-i", audioPath,
		"-ss", formatFFmpegTime(sp.start),
		"-to", formatFFmpegTime(sp.end),
		"-c", "copy",
		chunkPath,
	}

	if err := s.runner.Run(ctx, s.ffmpegPath, args); err != nil {
		return fmt.Errorf("%w: extract %s: %v", ErrSegmentationFailed, chunkPath, err)
	}
	return nil
}
