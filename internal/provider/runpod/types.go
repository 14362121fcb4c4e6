// Package runpod implements the poll-endpoint provider variant against the
// RunPod serverless API: submit returns a job id immediately, status is
// polled on a fixed interval, and the completed status response embeds the
// video inline as base64.
package runpod

// runRequest is the body for POST /v2/{endpoint}/run.
type runRequest struct {
	Input runInput `json:"input"`
}

// runInput carries the rendering parameters the InfiniteTalk worker expects.
type runInput struct {
	InputType     string `json:"input_type"`
	PersonCount   string `json:"person_count"`
	Prompt        string `json:"prompt"`
	ImageBase64   string `json:"image_base64"`
	WavBase64     string `json:"wav_base64"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	NetworkVolume bool   `json:"network_volume"`
	ForceOffload  bool   `json:"force_offload"`
}

// runResponse is the response from POST /v2/{endpoint}/run.
type runResponse struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// statusResponse is the response from GET /v2/{endpoint}/status/{id}.
type statusResponse struct {
	ID       string       `json:"id"`
	Status   string       `json:"status"`
	Progress int          `json:"progress,omitempty"`
	Output   statusOutput `json:"output,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// statusOutput is the output field of a completed status response.
type statusOutput struct {
	Video string `json:"video,omitempty"`
}
