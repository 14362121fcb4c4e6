package audio

import "time"

// Internal functions exposed for black-box testing.

// Span mirrors the internal span type for assertions.
type Span struct {
	Start time.Duration
	End   time.Duration
}

// PackSentences exposes packSentences.
func PackSentences(cuts []time.Duration, total, target time.Duration) []Span {
	spans := packSentences(cuts, total, target)
	out := make([]Span, len(spans))
	for i, sp := range spans {
		out[i] = Span{Start: sp.start, End: sp.end}
	}
	return out
}

// ParseSilenceOutput exposes parseSilenceOutput as start/end pairs.
func ParseSilenceOutput(output string) [][2]time.Duration {
	silences := parseSilenceOutput(output)
	out := make([][2]time.Duration, len(silences))
	for i, s := range silences {
		out[i] = [2]time.Duration{s.start, s.end}
	}
	return out
}

// ParseDurationOutput exposes parseDurationOutput.
var ParseDurationOutput = parseDurationOutput

// FormatFFmpegTime exposes formatFFmpegTime.
var FormatFFmpegTime = formatFFmpegTime
