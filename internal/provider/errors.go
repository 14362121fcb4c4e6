package provider

import "errors"

// Sentinel errors for the remote job lifecycle. Each is fatal for the chunk
// it occurred on; whether the batch continues is the orchestrator's policy.
var (
	// ErrSubmission indicates the provider accepted nothing usable: an HTTP
	// failure on submit or a response missing the job identifier.
	ErrSubmission = errors.New("job submission failed")

	// ErrRemoteJob indicates the provider reported a terminal failure
	// (FAILED, CANCELLED, or TIMED_OUT). The provider's error text is
	// surfaced verbatim in the wrapping message.
	ErrRemoteJob = errors.New("remote job failed")

	// ErrPollTimeout indicates the local wall-clock budget for a job ran out
	// while the job was still non-terminal. Distinct from ErrRemoteJob so
	// operators can tell "provider broke" from "we gave up too early".
	ErrPollTimeout = errors.New("poll timeout exceeded")

	// ErrEmptyOutput indicates the provider claimed completion but returned
	// no video. Treated as a provider anomaly worth flagging distinctly.
	ErrEmptyOutput = errors.New("completed job produced no output")
)
