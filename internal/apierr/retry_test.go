package apierr_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alnah/go-lipsync/internal/apierr"
)

func fastConfig(maxRetries int) apierr.RetryConfig {
	return apierr.RetryConfig{MaxRetries: maxRetries, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestRetryWithBackoff(t *testing.T) {
	t.Parallel()

	t.Run("success on first try returns immediately", func(t *testing.T) {
		t.Parallel()

		calls := 0
		result, err := apierr.RetryWithBackoff(context.Background(), fastConfig(5),
			func() (string, error) {
				calls++
				return "immediate", nil
			},
			func(error) bool { return true },
		)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "immediate" {
			t.Errorf("result = %q, want %q", result, "immediate")
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("non-retryable error stops immediately", func(t *testing.T) {
		t.Parallel()

		calls := 0
		permanent := errors.New("permanent")
		_, err := apierr.RetryWithBackoff(context.Background(), fastConfig(5),
			func() (string, error) {
				calls++
				return "", permanent
			},
			func(error) bool { return false },
		)

		if !errors.Is(err, permanent) {
			t.Errorf("error = %v, want wrapped permanent error", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1 (no retry)", calls)
		}
	})

	t.Run("retries then succeeds", func(t *testing.T) {
		t.Parallel()

		calls := 0
		result, err := apierr.RetryWithBackoff(context.Background(), fastConfig(3),
			func() (string, error) {
				calls++
				if calls < 3 {
					return "", errors.New("transient")
				}
				return "success", nil
			},
			func(error) bool { return true },
		)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "success" {
			t.Errorf("result = %q, want %q", result, "success")
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("max retries exceeded wraps last error", func(t *testing.T) {
		t.Parallel()

		calls := 0
		transient := errors.New("always fails")
		_, err := apierr.RetryWithBackoff(context.Background(), fastConfig(2),
			func() (string, error) {
				calls++
				return "", transient
			},
			func(error) bool { return true },
		)

		if calls != 3 {
			t.Errorf("calls = %d, want 3 (1 initial + 2 retries)", calls)
		}
		if !errors.Is(err, transient) {
			t.Errorf("error should wrap the last failure: %v", err)
		}
	})

	t.Run("cancelled context stops between attempts", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		_, err := apierr.RetryWithBackoff(ctx,
			apierr.RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Minute},
			func() (string, error) {
				calls++
				return "", errors.New("transient")
			},
			func(error) bool { return true },
		)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1 (cancelled before first backoff elapsed)", calls)
		}
	})
}
