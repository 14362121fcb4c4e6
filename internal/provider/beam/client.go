package beam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/alnah/go-lipsync/internal/apierr"
	"github.com/alnah/go-lipsync/internal/provider"
)

// Environment variable holding the Beam API token.
const envToken = "BEAM_TOKEN"

// taskStatusURL is the template for the task status endpoint.
const taskStatusURL = "https://api.beam.cloud/v2/task/%s/"

// Static errors for client construction.
var (
	// ErrQueueURLRequired is returned when the queue webhook URL is not provided.
	ErrQueueURLRequired = errors.New("beam: queue URL is required")
	// ErrTokenNotSet is returned when no API token is configured.
	ErrTokenNotSet = errors.New("beam: " + envToken + " environment variable is not set")
)

// Client talks to one Beam task queue.
// It implements provider.Client.
type Client struct {
	token      string
	queueURL   string
	statusURL  string
	httpClient *http.Client
	retry      apierr.RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the API token, overriding the environment variable.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithStatusURL sets a custom status URL template (for testing).
// The template must contain one %s verb for the task id.
func WithStatusURL(tmpl string) Option {
	return func(c *Client) {
		c.statusURL = tmpl
	}
}

// WithRetry sets the retry parameters for transient request failures.
func WithRetry(cfg apierr.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// NewClient creates a Beam client for the given task queue webhook URL.
// The token comes from WithToken or the BEAM_TOKEN environment variable.
func NewClient(queueURL string, opts ...Option) (*Client, error) {
	if queueURL == "" {
		return nil, ErrQueueURLRequired
	}

	c := &Client{
		queueURL:   queueURL,
		statusURL:  taskStatusURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry: apierr.RetryConfig{
			MaxRetries: 5,
			BaseDelay:  2 * time.Second,
			MaxDelay:   10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.token == "" {
		c.token = os.Getenv(envToken)
	}
	if c.token == "" {
		return nil, ErrTokenNotSet
	}

	return c, nil
}

// Name implements provider.Client.
func (c *Client) Name() string { return "beam" }

// Submit implements provider.Client.
func (c *Client) Submit(ctx context.Context, p provider.Payload) (string, error) {
	reqBody := taskRequest{
		Prompt:      p.Prompt,
		Width:       p.Width,
		Height:      p.Height,
		ImageBase64: p.ImageBase64,
		WavBase64:   p.AudioBase64,
	}
	if p.ForceOffload {
		val := true
		reqBody.ForceOffload = &val
	}

	var resp taskResponse
	if err := c.doJSON(ctx, http.MethodPost, c.queueURL, reqBody, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", provider.ErrSubmission, err)
	}

	if resp.TaskID == "" {
		if resp.Error != "" {
			return "", fmt.Errorf("%w: %s", provider.ErrSubmission, resp.Error)
		}
		return "", fmt.Errorf("%w: no task ID in response", provider.ErrSubmission)
	}

	return resp.TaskID, nil
}

// Poll implements provider.Client.
func (c *Client) Poll(ctx context.Context, taskID string) (provider.Snapshot, error) {
	if taskID == "" {
		return provider.Snapshot{}, fmt.Errorf("beam: task ID is required")
	}

	url := fmt.Sprintf(c.statusURL, taskID)

	var resp statusResponse
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return provider.Snapshot{}, err
	}

	snap := provider.Snapshot{State: mapState(resp.Status)}

	switch snap.State {
	case provider.StateCompleted:
		snap.OutputURL = selectVideoOutput(resp.Outputs)
	case provider.StateFailed, provider.StateCancelled, provider.StateTimedOut:
		snap.Error = resp.Error
	}

	return snap, nil
}

// Fetch implements provider.Client. The completed task lists output
// artifacts by URL; the selected video is streamed to disk rather than
// buffered, since renders can be large.
func (c *Client) Fetch(ctx context.Context, last provider.Snapshot, destPath string) error {
	if last.OutputURL == "" {
		return fmt.Errorf("%w: beam task", provider.ErrEmptyOutput)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, last.OutputURL, nil)
	if err != nil {
		return fmt.Errorf("beam: create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("beam: download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("beam: download failed with status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("beam: create output file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("beam: stream download: %w", err)
	}
	return out.Close()
}

// selectVideoOutput picks the first video-typed artifact, falling back to
// the first output when nothing looks like a video.
func selectVideoOutput(outputs []taskOutput) string {
	for _, o := range outputs {
		ext := strings.ToLower(path.Ext(o.Name))
		if ext == ".mp4" || ext == ".mov" || ext == ".webm" {
			return o.URL
		}
	}
	if len(outputs) > 0 {
		return outputs[0].URL
	}
	return ""
}

// mapState converts Beam status strings to the provider-agnostic states.
// Beam is loose with spellings: COMPLETE vs COMPLETED, CANCELED (one L),
// and ERROR for failures.
func mapState(status string) provider.State {
	switch status {
	case "PENDING":
		return provider.StateSubmitted
	case "RUNNING":
		return provider.StateRunning
	case "COMPLETED", "COMPLETE":
		return provider.StateCompleted
	case "FAILED", "ERROR":
		return provider.StateFailed
	case "CANCELED", "CANCELLED":
		return provider.StateCancelled
	case "TIMEOUT", "TIMED_OUT":
		return provider.StateTimedOut
	default:
		return provider.StateRunning
	}
}

// doJSON performs one JSON request with bounded retry on transient failures.
func (c *Client) doJSON(ctx context.Context, method, url string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("beam: marshal request: %w", err)
		}
	}

	_, err := apierr.RetryWithBackoff(ctx, c.retry, func() (struct{}, error) {
		return struct{}{}, c.doOnce(ctx, method, url, payload, result)
	}, apierr.Retryable)
	return err
}

// doOnce performs a single HTTP request, classifying failures into apierr
// sentinels so the retry layer can tell transient from permanent.
func (c *Client) doOnce(ctx context.Context, method, url string, payload []byte, result any) error {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("beam: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("beam: %w: %v", apierr.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("beam: %w: read response: %v", apierr.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Fall through to decode.
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("beam: %w: %s", apierr.ErrRateLimit, respBody)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("beam: %w: %s", apierr.ErrAuthFailed, respBody)
	case resp.StatusCode >= 500:
		return fmt.Errorf("beam: %w (%d): %s", apierr.ErrServer, resp.StatusCode, respBody)
	default:
		return fmt.Errorf("beam: %w (%d): %s", apierr.ErrBadRequest, resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("beam: unmarshal response: %w", err)
		}
	}
	return nil
}

// Compile-time check that Client implements provider.Client.
var _ provider.Client = (*Client)(nil)
