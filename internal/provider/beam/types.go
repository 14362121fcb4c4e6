// Package beam implements the task-queue provider variant against the
// Beam.cloud task queue API: submit posts to a queue webhook and returns a
// task id, status is polled on the task endpoint, and a completed task lists
// named output artifacts that must be downloaded separately.
package beam

// taskRequest is the body posted to the task queue webhook URL.
type taskRequest struct {
	Prompt       string `json:"prompt,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	ForceOffload *bool  `json:"force_offload,omitempty"`
	ImageBase64  string `json:"image_base64,omitempty"`
	WavBase64    string `json:"wav_base64,omitempty"`
}

// taskResponse is the response from task submission.
type taskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// statusResponse is the response from GET /v2/task/{id}/.
type statusResponse struct {
	TaskID  string       `json:"task_id"`
	Status  string       `json:"status"`
	Outputs []taskOutput `json:"outputs,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// taskOutput is a single named output artifact of a completed task.
type taskOutput struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}
