package beam_test

import (
	"context"
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
	"github.com/alnah/go-lipsync/internal/provider/beam"
)

var fastRetry = apierr.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

func newClient(t *testing.T, queueURL, statusURL string) *beam.Client {
	t.Helper()
	opts := []beam.Option{
		beam.WithToken("test-token"),
		beam.WithRetry(fastRetry),
	}
	if statusURL != "" {
		opts = append(opts, beam.WithStatusURL(statusURL))
	}
	c, err := beam.NewClient(queueURL, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := beam.NewClient(""); !errors.Is(err, beam.ErrQueueURLRequired) {
		t.Errorf("got %v, want ErrQueueURLRequired", err)
	}

	t.Setenv("BEAM_TOKEN", "")
	if _, err := beam.NewClient("https://queue.example.com"); !errors.Is(err, beam.ErrTokenNotSet) {
		t.Errorf("got %v, want ErrTokenNotSet", err)
	}
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("auth header = %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"task_id": "task-7"})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, "")
	taskID, err := c.Submit(context.Background(), provider.Payload{
		ImageBase64:  "aW1n",
		AudioBase64:  "YXVkaW8=",
		Width:        384,
		Height:       576,
		ForceOffload: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if taskID != "task-7" {
		t.Errorf("taskID = %q, want task-7", taskID)
	}
	if gotBody["image_base64"] != "aW1n" || gotBody["wav_base64"] != "YXVkaW8=" {
		t.Errorf("payload fields wrong: %v", gotBody)
	}
	if offload, ok := gotBody["force_offload"].(bool); !ok || !offload {
		t.Errorf("force_offload = %v, want true", gotBody["force_offload"])
	}
}

func TestSubmit_NoTaskID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "queue is paused"})
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, "").Submit(context.Background(), provider.Payload{})
	if !errors.Is(err, provider.ErrSubmission) {
		t.Errorf("got %v, want ErrSubmission", err)
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
			name:     "pending",
			response: map[string]any{"status": "PENDING"},
			want:     provider.Snapshot{State: provider.StateSubmitted},
		},
		{
			name:     "running",
			response: map[string]any{"status": "RUNNING"},
			want:     provider.Snapshot{State: provider.StateRunning},
		},
		{
			name: "complete picks video output",
			response: map[string]any{
				"status": "COMPLETE",
				"outputs": []map[string]string{
					{"name": "log.txt", "url": "https://cdn.example.com/log.txt"},
					{"name": "result.mp4", "url": "https://cdn.example.com/result.mp4"},
				},
			},
			want: provider.Snapshot{
				State:     provider.StateCompleted,
				OutputURL: "https://cdn.example.com/result.mp4",
			},
		},
		{
			name: "completed falls back to first output",
			response: map[string]any{
				"status": "COMPLETED",
				"outputs": []map[string]string{
					{"name": "render", "url": "https://cdn.example.com/render"},
				},
			},
			want: provider.Snapshot{
				State:     provider.StateCompleted,
				OutputURL: "https://cdn.example.com/render",
			},
		},
		{
			name:     "error spelling maps to failed",
			response: map[string]any{"status": "ERROR", "error": "worker crashed"},
			want:     provider.Snapshot{State: provider.StateFailed, Error: "worker crashed"},
		},
		{
			name:     "canceled single L",
			response: map[string]any{"status": "CANCELED"},
			want:     provider.Snapshot{State: provider.StateCancelled},
		},
		{
			name:     "unknown status keeps polling",
			response: map[string]any{"status": "RETRYING"},
			want:     provider.Snapshot{State: provider.StateRunning},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/task/task-7/" {
					t.Errorf("unexpected path %q", r.URL.Path)
				}
				_ = json.NewEncoder(w).Encode(tt.response)
			}))
			defer srv.Close()

			c := newClient(t, "https://queue.example.com", srv.URL+"/task/%s/")
			snap, err := c.Poll(context.Background(), "task-7")
			if err != nil {
				t.Fatal(err)
			}
			if snap != tt.want {
				t.Errorf("snapshot = %+v, want %+v", snap, tt.want)
			}
		})
	}
}

func TestPoll_ServerErrorRetries(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "RUNNING"})
	}))
	defer srv.Close()

	c := newClient(t, "https://queue.example.com", srv.URL+"/task/%s/")
	snap, err := c.Poll(context.Background(), "task-7")
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != provider.StateRunning {
		t.Errorf("state = %v, want running", snap.State)
	}
	if calls != 2 {
		t.Errorf("server called %d times, want 2", calls)
	}
}

func TestFetch_StreamsOutput(t *testing.T) {
	t.Parallel()

	video := []byte("fake mp4 bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(video)
	}))
	defer srv.Close()

	c := newClient(t, "https://queue.example.com", "")
	dest := filepath.Join(t.TempDir(), "part_000.mp4")

	snap := provider.Snapshot{State: provider.StateCompleted, OutputURL: srv.URL + "/result.mp4"}
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

func TestFetch_NoOutputURL(t *testing.T) {
	t.Parallel()

	c := newClient(t, "https://queue.example.com", "")
	err := c.Fetch(context.Background(), provider.Snapshot{State: provider.StateCompleted}, "unused")
	if !errors.Is(err, provider.ErrEmptyOutput) {
		t.Errorf("got %v, want ErrEmptyOutput", err)
	}
}

func TestFetch_DownloadErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newClient(t, "https://queue.example.com", "")
	dest := filepath.Join(t.TempDir(), "part_000.mp4")
	err := c.Fetch(context.Background(), provider.Snapshot{OutputURL: srv.URL + "/gone.mp4"}, dest)
	if err == nil {
		t.Fatal("expected error for 404 download")
	}
}
