package audio

import "errors"

// Sentinel errors for audio segmentation.
var (
	// ErrInvalidInput indicates the source audio is missing, empty, or unreadable.
	// This is a local, deterministic failure; it is never retried.
	ErrInvalidInput = errors.New("invalid audio input")

	// ErrSegmentationFailed indicates FFmpeg failed while extracting a chunk.
	ErrSegmentationFailed = errors.New("audio segmentation failed")
)
