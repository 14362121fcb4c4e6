package pipeline

import (
	"errors"
	"time"

	"github.com/alnah/go-lipsync/internal/audio"
	"github.com/alnah/go-lipsync/internal/render"
)

// Report is the outcome of one pipeline run. It is populated incrementally,
// so a run that fails midway still describes everything it got done.
type Report struct {
	RunDir     string
	Chunks     []audio.Chunk
	Results    []render.Result
	FinalVideo string
	Elapsed    time.Duration
}

// Succeeded returns the number of chunks that produced a video.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns the results of chunks that were attempted and failed,
// in index order. Skipped chunks are not failures.
func (r *Report) Failed() []render.Result {
	var failed []render.Result
	for _, res := range r.Results {
		if res.Err != nil && !errors.Is(res.Err, ErrSkipped) {
			failed = append(failed, res)
		}
	}
	return failed
}

// Skipped returns the indices of chunks never submitted because the run
// halted first.
func (r *Report) Skipped() []int {
	var skipped []int
	for _, res := range r.Results {
		if errors.Is(res.Err, ErrSkipped) {
			skipped = append(skipped, res.Index)
		}
	}
	return skipped
}

// AllSucceeded reports whether every chunk produced a video. The final
// video exists if and only if this is true and stitching succeeded.
func (r *Report) AllSucceeded() bool {
	if len(r.Results) == 0 {
		return false
	}
	return r.Succeeded() == len(r.Results)
}
