package runpod

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/alnah/go-lipsync/internal/apierr"
	"github.com/alnah/go-lipsync/internal/provider"
)

// Environment variable holding the RunPod API key.
const envAPIKey = "RUNPOD_API_KEY"

// Defaults for the InfiniteTalk worker payload.
const (
	defaultInputType   = "image"
	defaultPersonCount = "single"
	defaultPrompt      = "high quality, realistic, speaking naturally"
)

// Static errors for client construction.
var (
	// ErrEndpointIDRequired is returned when the endpoint ID is not provided.
	ErrEndpointIDRequired = errors.New("runpod: endpoint ID is required")
	// ErrAPIKeyNotSet is returned when no API key is configured.
	ErrAPIKeyNotSet = errors.New("runpod: " + envAPIKey + " environment variable is not set")
)

// Client talks to one RunPod serverless endpoint.
// It implements provider.Client.
type Client struct {
	apiKey     string
	endpointID string
	baseURL    string
	httpClient *http.Client
	retry      apierr.RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the API key, overriding the environment variable.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithRetry sets the retry parameters for transient request failures.
func WithRetry(cfg apierr.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// NewClient creates a RunPod client for the given endpoint.
// The API key comes from WithAPIKey or the RUNPOD_API_KEY environment variable.
func NewClient(endpointID string, opts ...Option) (*Client, error) {
	if endpointID == "" {
		return nil, ErrEndpointIDRequired
	}

	c := &Client{
		endpointID: endpointID,
		baseURL:    "https://api.runpod.ai/v2",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry: apierr.RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv(envAPIKey)
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

// Name implements provider.Client.
func (c *Client) Name() string { return "runpod" }

// Submit implements provider.Client. A response without a job id is a hard
// submission error; the provider's error text, if any, is included.
func (c *Client) Submit(ctx context.Context, p provider.Payload) (string, error) {
	prompt := p.Prompt
	if prompt == "" {
		prompt = defaultPrompt
	}

	reqBody := runRequest{
		Input: runInput{
			InputType:     defaultInputType,
			PersonCount:   defaultPersonCount,
			Prompt:        prompt,
			ImageBase64:   p.ImageBase64,
			WavBase64:     p.AudioBase64,
			Width:         p.Width,
			Height:        p.Height,
			NetworkVolume: false,
			ForceOffload:  p.ForceOffload,
		},
	}

	url := fmt.Sprintf("%s/%s/run", c.baseURL, c.endpointID)

	var resp runResponse
	if err := c.doJSON(ctx, http.MethodPost, url, reqBody, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", provider.ErrSubmission, err)
	}

	if resp.ID == "" {
		if resp.Error != "" {
			return "", fmt.Errorf("%w: %s", provider.ErrSubmission, resp.Error)
		}
		return "", fmt.Errorf("%w: no job ID in response", provider.ErrSubmission)
	}

	return resp.ID, nil
}

// Poll implements provider.Client.
func (c *Client) Poll(ctx context.Context, jobID string) (provider.Snapshot, error) {
	if jobID == "" {
		return provider.Snapshot{}, fmt.Errorf("runpod: job ID is required")
	}

	url := fmt.Sprintf("%s/%s/status/%s", c.baseURL, c.endpointID, jobID)

	var resp statusResponse
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return provider.Snapshot{}, err
	}

	snap := provider.Snapshot{
		State:    mapState(resp.Status),
		Progress: resp.Progress,
	}

	switch snap.State {
	case provider.StateCompleted:
		snap.VideoBase64 = resp.Output.Video
	case provider.StateFailed, provider.StateCancelled, provider.StateTimedOut:
		snap.Error = resp.Error
	}

	return snap, nil
}

// Fetch implements provider.Client. RunPod embeds the video in the completed
// status response, so fetching is a decode of the last snapshot.
func (c *Client) Fetch(_ context.Context, last provider.Snapshot, destPath string) error {
	if last.VideoBase64 == "" {
		return fmt.Errorf("%w: runpod job", provider.ErrEmptyOutput)
	}

	data, err := base64.StdEncoding.DecodeString(last.VideoBase64)
	if err != nil {
		return fmt.Errorf("runpod: decode video: %w", err)
	}

	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return fmt.Errorf("runpod: write video: %w", err)
	}
	return nil
}

// mapState converts RunPod status strings to the provider-agnostic states.
func mapState(status string) provider.State {
	switch status {
	case "IN_QUEUE":
		return provider.StateSubmitted
	case "IN_PROGRESS", "RUNNING":
		return provider.StateRunning
	case "COMPLETED":
		return provider.StateCompleted
	case "FAILED":
		return provider.StateFailed
	case "CANCELLED":
		return provider.StateCancelled
	case "TIMED_OUT":
		return provider.StateTimedOut
	default:
		// Unknown statuses are treated as still running so polling
		// continues until the local timeout decides.
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
			return fmt.Errorf("runpod: marshal request: %w", err)
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
		return fmt.Errorf("runpod: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("runpod: %w: %v", apierr.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("runpod: %w: read response: %v", apierr.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Fall through to decode.
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("runpod: %w: %s", apierr.ErrRateLimit, respBody)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("runpod: %w: %s", apierr.ErrAuthFailed, respBody)
	case resp.StatusCode >= 500:
		return fmt.Errorf("runpod: %w (%d): %s", apierr.ErrServer, resp.StatusCode, respBody)
	default:
		return fmt.Errorf("runpod: %w (%d): %s", apierr.ErrBadRequest, resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("runpod: unmarshal response: %w", err)
		}
	}
	return nil
}

// Compile-time check that Client implements provider.Client.
var _ provider.Client = (*Client)(nil)
