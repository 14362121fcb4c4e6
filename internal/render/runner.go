// Package render drives a single chunk through its remote job lifecycle:
// submit, poll to a terminal state, fetch the finished video. It sits
// between the provider clients and the pipeline orchestrator and reports
// outcomes as values rather than returning mid-flight errors, so a failed
// chunk never aborts its neighbours by accident.
package render

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/alnah/go-lipsync/internal/provider"
)

// Default job pacing.
const (
	// DefaultPollInterval is the fixed delay between status polls.
	DefaultPollInterval = 10 * time.Second
	// DefaultJobTimeout is the wall-clock budget for one chunk, measured
	// from submission to terminal state.
	DefaultJobTimeout = 30 * time.Minute
)

// Runner renders one chunk at a time against a provider.
type Runner struct {
	client       provider.Client
	pollInterval time.Duration
	jobTimeout   time.Duration
	progress     io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithJobTimeout sets the wall-clock budget for a single chunk job.
func WithJobTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.jobTimeout = d
		}
	}
}

// WithProgressWriter sets the destination for progress lines.
// Defaults to io.Discard.
func WithProgressWriter(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.progress = w
		}
	}
}

// NewRunner creates a Runner for the given provider client.
func NewRunner(client provider.Client, opts ...Option) *Runner {
	r := &Runner{
		client:       client,
		pollInterval: DefaultPollInterval,
		jobTimeout:   DefaultJobTimeout,
		progress:     io.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is the outcome of rendering one chunk. Err is nil on success,
// in which case VideoPath holds the fetched part file.
type Result struct {
	Index     int
	JobID     string
	State     provider.State
	VideoPath string
	Elapsed   time.Duration
	Err       error
}

// Succeeded reports whether the chunk produced a video.
func (r Result) Succeeded() bool { return r.Err == nil }

// Run renders one chunk: submit the payload, poll until the job reaches a
// terminal state or the job timeout elapses, then fetch the video to
// destPath. All failure modes are captured in the returned Result.
func (r *Runner) Run(ctx context.Context, index int, p provider.Payload, destPath string) Result {
	start := time.Now()
	res := Result{Index: index}

	jobID, err := r.client.Submit(ctx, p)
	if err != nil {
		res.Err = err
		res.Elapsed = time.Since(start)
		return res
	}
	res.JobID = jobID
	fmt.Fprintf(r.progress, "chunk %d: submitted as %s job %s\n", index, r.client.Name(), jobID)

	snap, err := r.pollUntilTerminal(ctx, index, jobID, start)
	res.State = snap.State
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}

	switch snap.State {
	case provider.StateCompleted:
		if !snap.HasOutput() {
			res.Err = fmt.Errorf("%w: job %s completed without video", provider.ErrEmptyOutput, jobID)
			return res
		}
	case provider.StateFailed, provider.StateCancelled, provider.StateTimedOut:
		detail := snap.Error
		if detail == "" {
			detail = "no error detail reported"
		}
		res.Err = fmt.Errorf("%w: job %s ended %s: %s", provider.ErrRemoteJob, jobID, snap.State, detail)
		return res
	}

	if err := r.client.Fetch(ctx, snap, destPath); err != nil {
		res.Err = err
		res.Elapsed = time.Since(start)
		return res
	}

	res.VideoPath = destPath
	res.Elapsed = time.Since(start)
	fmt.Fprintf(r.progress, "chunk %d: done in %s\n", index, res.Elapsed.Round(time.Second))
	return res
}

// pollUntilTerminal polls the job on a fixed interval until it reaches a
// terminal state, the context is cancelled, or the job timeout elapses.
// Progress is reported only when it advances; providers occasionally
// report stale lower values between workers.
func (r *Runner) pollUntilTerminal(ctx context.Context, index int, jobID string, start time.Time) (provider.Snapshot, error) {
	deadline := start.Add(r.jobTimeout)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	lastProgress := -1
	last := provider.Snapshot{State: provider.StateSubmitted}

	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			return last, fmt.Errorf("%w: job %s still %s after %s",
				provider.ErrPollTimeout, jobID, last.State, r.jobTimeout)
		}

		snap, err := r.client.Poll(ctx, jobID)
		if err != nil {
			return last, err
		}
		last = snap

		if snap.Progress > lastProgress {
			lastProgress = snap.Progress
			if snap.Progress > 0 {
				fmt.Fprintf(r.progress, "chunk %d: %s %d%%\n", index, snap.State, snap.Progress)
			}
		}

		if snap.State.IsTerminal() {
			return snap, nil
		}
	}
}
