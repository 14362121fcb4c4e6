package runpod_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alnah/go-lipsync/internal/apierr"
	"github.com/alnah/go-lipsync/internal/provider"
	"github.com/alnah/go-lipsync/internal/provider/runpod"
)

// fastRetry keeps test retries quick.
var fastRetry = apierr.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

func newClient(t *testing.T, baseURL string) *runpod.Client {
	t.Helper()
	c, err := runpod.NewClient("ep123",
		runpod.WithAPIKey("test-key"),
		runpod.WithBaseURL(baseURL),
		runpod.WithRetry(fastRetry),
	)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := runpod.NewClient(""); !errors.Is(err, runpod.ErrEndpointIDRequired) {
		t.Errorf("got %v, want ErrEndpointIDRequired", err)
	}

	t.Setenv("RUNPOD_API_KEY", "")
	if _, err := runpod.NewClient("ep123"); !errors.Is(err, runpod.ErrAPIKeyNotSet) {
		t.Errorf("got %v, want ErrAPIKeyNotSet", err)
	}
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ep123/run" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "job-1", "status": "IN_QUEUE"})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	jobID, err := c.Submit(context.Background(), provider.Payload{
		ImageBase64: "aW1n",
		AudioBase64: "YXVkaW8=",
		Width:       384,
		Height:      576,
	})
	if err != nil {
		t.Fatal(err)
	}
	if jobID != "job-1" {
		t.Errorf("jobID = %q, want job-1", jobID)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}

	input, ok := gotBody["input"].(map[string]any)
	if !ok {
		t.Fatalf("request body missing input object: %v", gotBody)
	}
	if input["image_base64"] != "aW1n" || input["wav_base64"] != "YXVkaW8=" {
		t.Errorf("payload fields wrong: %v", input)
	}
	if input["prompt"] == "" {
		t.Error("default prompt not applied")
	}
}

func TestSubmit_MissingJobID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "quota exhausted"})
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Submit(context.Background(), provider.Payload{})
	if !errors.Is(err, provider.ErrSubmission) {
		t.Errorf("got %v, want ErrSubmission", err)
	}
}

func TestSubmit_ServerErrorRetriesThenFails(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Submit(context.Background(), provider.Payload{})
	if !errors.Is(err, provider.ErrSubmission) {
		t.Errorf("got %v, want ErrSubmission", err)
	}
	if calls != 3 {
		t.Errorf("server called %d times, want 3 (initial + 2 retries)", calls)
	}
}

func TestSubmit_BadRequestNotRetried(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Submit(context.Background(), provider.Payload{})
	if !errors.Is(err, provider.ErrSubmission) {
		t.Errorf("got %v, want ErrSubmission", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1", calls)
	}
}

func TestPoll_StateMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response map[string]any
		want     provider.Snapshot
	}{
		{
			name:     "in queue",
			response: map[string]any{"status": "IN_QUEUE"},
			want:     provider.Snapshot{State: provider.StateSubmitted},
		},
		{
			name:     "in progress with progress",
			response: map[string]any{"status": "IN_PROGRESS", "progress": 40},
			want:     provider.Snapshot{State: provider.StateRunning, Progress: 40},
		},
		{
			name: "completed with inline video",
			response: map[string]any{
				"status": "COMPLETED",
				"output": map[string]string{"video": "dmlkZW8="},
			},
			want: provider.Snapshot{State: provider.StateCompleted, VideoBase64: "dmlkZW8="},
		},
		{
			name:     "failed with error text",
			response: map[string]any{"status": "FAILED", "error": "cuda out of memory"},
			want:     provider.Snapshot{State: provider.StateFailed, Error: "cuda out of memory"},
		},
		{
			name:     "timed out",
			response: map[string]any{"status": "TIMED_OUT"},
			want:     provider.Snapshot{State: provider.StateTimedOut},
		},
		{
			name:     "unknown status keeps polling",
			response: map[string]any{"status": "WARMING_UP"},
			want:     provider.Snapshot{State: provider.StateRunning},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/ep123/status/job-1" {
					t.Errorf("unexpected path %q", r.URL.Path)
				}
				_ = json.NewEncoder(w).Encode(tt.response)
			}))
			defer srv.Close()

			snap, err := newClient(t, srv.URL).Poll(context.Background(), "job-1")
			if err != nil {
				t.Fatal(err)
			}
			if snap != tt.want {
				t.Errorf("snapshot = %+v, want %+v", snap, tt.want)
			}
		})
	}
}

func TestFetch_DecodesInlineVideo(t *testing.T) {
	t.Parallel()

	c := newClient(t, "http://unused")
	dest := filepath.Join(t.TempDir(), "part_000.mp4")
	video := []byte("fake mp4 bytes")

	snap := provider.Snapshot{
		State:       provider.StateCompleted,
		VideoBase64: base64.StdEncoding.EncodeToString(video),
	}
	if err := c.Fetch(context.Background(), snap, dest); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(video) {
		t.Errorf("written bytes = %q, want %q", got, video)
	}
}

func TestFetch_EmptyOutput(t *testing.T) {
	t.Parallel()

	c := newClient(t, "http://unused")
	err := c.Fetch(context.Background(), provider.Snapshot{State: provider.StateCompleted}, "unused")
	if !errors.Is(err, provider.ErrEmptyOutput) {
		t.Errorf("got %v, want ErrEmptyOutput", err)
	}
}
