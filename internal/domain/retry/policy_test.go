package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/retry"
)

func TestPolicy_CalculateDelay(t *testing.T) {
	tests := []struct {
		name     string
		policy   retry.Policy
		attempt  int
		expected time.Duration
	}{
		{
			name: "fixed backoff - attempt 1",
			policy: retry.Policy{
				BackoffStrategy: retry.BackoffFixed,
				InitialDelay:    100 * time.Millisecond,
				MaxDelay:        1 * time.Second,
			},
			attempt:  1,
			expected: 100 * time.Millisecond,
		},
		{
			name: "fixed backoff - attempt 7",
			policy: retry.Policy{
				BackoffStrategy: retry.BackoffFixed,
				InitialDelay:    100 * time.Millisecond,
				MaxDelay:        1 * time.Second,
			},
			attempt:  7,
			expected: 100 * time.Millisecond,
		},
		{
			name: "linear backoff - attempt 3",
			policy: retry.Policy{
				BackoffStrategy: retry.BackoffLinear,
				InitialDelay:    100 * time.Millisecond,
				MaxDelay:        1 * time.Second,
			},
			attempt:  3,
			expected: 300 * time.Millisecond,
		},
		{
			name: "exponential backoff - attempt 3",
			policy: retry.Policy{
				BackoffStrategy: retry.BackoffExponential,
				InitialDelay:    100 * time.Millisecond,
				MaxDelay:        10 * time.Second,
			},
			attempt:  3,
			expected: 400 * time.Millisecond,
		},
		{
			name: "respects max delay",
			policy: retry.Policy{
				BackoffStrategy: retry.BackoffExponential,
				InitialDelay:    100 * time.Millisecond,
				MaxDelay:        200 * time.Millisecond,
			},
			attempt:  10,
			expected: 200 * time.Millisecond,
		},
		{
			name: "zero attempt",
			policy: retry.Policy{
				BackoffStrategy: retry.BackoffFixed,
				InitialDelay:    100 * time.Millisecond,
				MaxDelay:        1 * time.Second,
			},
			attempt:  0,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.CalculateDelay(tt.attempt); got != tt.expected {
				t.Errorf("Policy.CalculateDelay() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPolicy_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds first attempt", func(t *testing.T) {
		policy := retry.Policy{MaxRetries: 3, BackoffStrategy: retry.BackoffFixed}
		calls := 0
		err := policy.Execute(ctx, func(ctx context.Context, attempt int) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if calls != 1 {
			t.Errorf("Execute() calls = %d, want 1", calls)
		}
	})

	t.Run("retries until success", func(t *testing.T) {
		policy := retry.Policy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffStrategy: retry.BackoffFixed}
		calls := 0
		err := policy.Execute(ctx, func(ctx context.Context, attempt int) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if calls != 3 {
			t.Errorf("Execute() calls = %d, want 3", calls)
		}
	})

	t.Run("returns last error after exhaustion", func(t *testing.T) {
		policy := retry.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffStrategy: retry.BackoffFixed}
		wantErr := errors.New("still broken")
		calls := 0
		err := policy.Execute(ctx, func(ctx context.Context, attempt int) error {
			calls++
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("Execute() error = %v, want %v", err, wantErr)
		}
		if calls != 3 {
			t.Errorf("Execute() calls = %d, want 3", calls)
		}
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		policy := retry.Policy{MaxRetries: 10, InitialDelay: time.Hour, MaxDelay: time.Hour, BackoffStrategy: retry.BackoffFixed}
		cancelCtx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		err := policy.Execute(cancelCtx, func(ctx context.Context, attempt int) error {
			return errors.New("transient")
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Execute() error = %v, want context.Canceled", err)
		}
	})
}

func TestExecuteWithResult(t *testing.T) {
	ctx := context.Background()
	policy := retry.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffStrategy: retry.BackoffFixed}

	calls := 0
	got, err := retry.ExecuteWithResult(ctx, policy, func(ctx context.Context, attempt int) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "thread_abc", nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult() error = %v", err)
	}
	if got != "thread_abc" {
		t.Errorf("ExecuteWithResult() = %q, want %q", got, "thread_abc")
	}
	if calls != 2 {
		t.Errorf("ExecuteWithResult() calls = %d, want 2", calls)
	}
}

func TestStatusFetchPolicy(t *testing.T) {
	policy := retry.StatusFetchPolicy()
	if policy.MaxRetries != 9 {
		t.Errorf("StatusFetchPolicy().MaxRetries = %d, want 9", policy.MaxRetries)
	}
	if policy.InitialDelay != 2*time.Second {
		t.Errorf("StatusFetchPolicy().InitialDelay = %v, want 2s", policy.InitialDelay)
	}
	if policy.BackoffStrategy != retry.BackoffFixed {
		t.Errorf("StatusFetchPolicy().BackoffStrategy = %q, want fixed", policy.BackoffStrategy)
	}
}
