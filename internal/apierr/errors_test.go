package apierr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alnah/go-lipsync/internal/apierr"
)

func TestSentinelErrorWrapping(t *testing.T) {
	t.Parallel()

	sentinels := []struct {
		name string
		err  error
	}{
		{"ErrRateLimit", apierr.ErrRateLimit},
		{"ErrServer", apierr.ErrServer},
		{"ErrTimeout", apierr.ErrTimeout},
		{"ErrNetwork", apierr.ErrNetwork},
		{"ErrAuthFailed", apierr.ErrAuthFailed},
		{"ErrBadRequest", apierr.ErrBadRequest},
	}

	for _, tt := range sentinels {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wrapped := fmt.Errorf("some context: %w", tt.err)
			if !errors.Is(wrapped, tt.err) {
				t.Errorf("errors.Is(wrapped, %v) = false, want true", tt.err)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", apierr.ErrRateLimit, true},
		{"server error", apierr.ErrServer, true},
		{"timeout", apierr.ErrTimeout, true},
		{"network", apierr.ErrNetwork, true},
		{"wrapped server error", fmt.Errorf("status 502: %w", apierr.ErrServer), true},
		{"auth failure", apierr.ErrAuthFailed, false},
		{"bad request", apierr.ErrBadRequest, false},
		{"unrelated error", errors.New("parse failed"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := apierr.Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
