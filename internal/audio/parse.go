package audio

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// silencePoint represents a detected silence interval in the audio.
type silencePoint struct {
	start time.Duration
	end   time.Duration
}

// length returns how long the silence lasts.
func (s silencePoint) length() time.Duration {
	return s.end - s.start
}

// Regex patterns for silencedetect output - tolerant of format variations.
var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([\d.]+)`)
)

// parseSilenceOutput extracts silence points from FFmpeg silencedetect output.
// FFmpeg outputs lines like:
//
//	[silencedetect @ 0x...] silence_start: 42.123
//	[silencedetect @ 0x...] silence_end: 43.456 | silence_duration: 1.333
func parseSilenceOutput(output string) []silencePoint {
	var silences []silencePoint
	var currentStart time.Duration
	hasStart := false

	for line := range strings.SplitSeq(output, "\n") {
		if matches := silenceStartRe.FindStringSubmatch(line); matches != nil {
			seconds, err := strconv.ParseFloat(matches[1], 64)
			if err == nil {
				// silencedetect can report a slightly negative start
				// for silence at the very beginning of the file.
				currentStart = max(time.Duration(seconds*float64(time.Second)), 0)
				hasStart = true
			}
		}
		if matches := silenceEndRe.FindStringSubmatch(line); matches != nil && hasStart {
			seconds, err := strconv.ParseFloat(matches[1], 64)
			if err == nil {
				silences = append(silences, silencePoint{
					start: currentStart,
					end:   time.Duration(seconds * float64(time.Second)),
				})
				hasStart = false
			}
		}
	}

	return silences
}

// parseDurationOutput extracts the track duration from FFmpeg stderr.
// Looks for "Duration: HH:MM:SS.cc", falling back to the last "time=HH:MM:SS.cc"
// progress line.
func parseDurationOutput(output string) (time.Duration, error) {
	durationRe := regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	if matches := durationRe.FindStringSubmatch(output); matches != nil {
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	timeRe := regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
	allMatches := timeRe.FindAllStringSubmatch(output, -1)
	if len(allMatches) > 0 {
		matches := allMatches[len(allMatches)-1]
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	return 0, fmt.Errorf("could not parse duration from ffmpeg output")
}

// parseTimeComponents converts HH:MM:SS.cc strings to a Duration.
func parseTimeComponents(hours, minutes, seconds, fraction string) (time.Duration, error) {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	// The fractional part may be 1-3+ digits; normalize to milliseconds.
	frac, _ := strconv.Atoi(fraction)
	ms := frac
	switch len(fraction) {
	case 1:
		ms = frac * 100
	case 2:
		ms = frac * 10
	case 3:
		// Already milliseconds.
	default:
		for len(fraction) > 3 {
			ms /= 10
			fraction = fraction[:len(fraction)-1]
		}
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}
