// Package provider defines the capability surface every remote rendering
// backend implements: submit a job, poll it to a terminal state, fetch the
// finished video. The orchestrator only ever sees this interface; the
// poll-endpoint and task-queue protocol differences live in the
// runpod and beam subpackages.
package provider

import "context"

// State is the provider-agnostic lifecycle state of a rendering job.
type State string

// Job lifecycle states. SUBMITTED and RUNNING are pollable; the rest are
// terminal and immutable once reached.
const (
	StateSubmitted State = "SUBMITTED"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
	StateTimedOut  State = "TIMED_OUT"
)

// IsTerminal returns true if no further transition can occur from s.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateTimedOut:
		return true
	default:
		return false
	}
}

// Payload is one chunk submission. The image is identical across all chunks
// of a run; callers encode it once and reuse the string.
type Payload struct {
	ImageBase64  string
	AudioBase64  string
	Width        int
	Height       int
	Prompt       string
	ForceOffload bool
}

// Snapshot is the last-known view of a remote job, as reported by a poll.
type Snapshot struct {
	State    State
	Progress int    // 0-100, provider-reported; 0 when the provider omits it
	Error    string // provider error text, set on terminal failure states

	// Exactly one of these carries the finished video on completion,
	// depending on the provider family.
	VideoBase64 string // inline output (poll-endpoint providers)
	OutputURL   string // downloadable output (task-queue providers)
}

// HasOutput reports whether the snapshot carries a fetchable video.
func (s Snapshot) HasOutput() bool {
	return s.VideoBase64 != "" || s.OutputURL != ""
}

// Client is the capability set shared by all rendering providers.
type Client interface {
	// Submit sends one chunk payload and returns the provider-assigned
	// job identifier. A missing identifier in the response is a hard
	// submission error; Submit never retries terminal provider rejections.
	Submit(ctx context.Context, p Payload) (jobID string, err error)

	// Poll returns the current snapshot of the job. Transient network
	// failures are retried a bounded number of times before the error
	// propagates.
	Poll(ctx context.Context, jobID string) (Snapshot, error)

	// Fetch materializes the finished video at destPath using the output
	// reference in last. For inline providers this decodes the embedded
	// bytes; for URL providers it streams the download to disk.
	Fetch(ctx context.Context, last Snapshot, destPath string) error

	// Name identifies the provider in logs and reports.
	Name() string
}
