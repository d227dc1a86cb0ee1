package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/finops-adapters/sumo-anycost-go/internal/shared/types"
)

func testPolicy(delays *[]time.Duration) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Sleep: func(d time.Duration) {
			*delays = append(*delays, d)
		},
	}
}

func TestExecuteRetriesTransientErrors(t *testing.T) {
	var delays []time.Duration
	policy := testPolicy(&delays)

	calls := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("transient %d", calls)
		}
		return nil
	}, func(error) bool { return true })

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(delays) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(delays))
	}
	if delays[1] <= delays[0] {
		t.Fatalf("expected increasing backoff, got %v then %v", delays[0], delays[1])
	}
}

func TestExecuteStopsOnFatalError(t *testing.T) {
	var delays []time.Duration
	policy := testPolicy(&delays)

	fatal := errors.New("invalid credentials")
	calls := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	}, func(error) bool { return false })

	if !errors.Is(err, fatal) {
		t.Fatalf("expected the fatal error back, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if len(delays) != 0 {
		t.Fatalf("expected no sleeps, got %d", len(delays))
	}
}

func TestExecuteExhaustionWrapsLastError(t *testing.T) {
	var delays []time.Duration
	policy := testPolicy(&delays)

	last := errors.New("still down")
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		return last
	}, func(error) bool { return true })

	var exhausted *types.RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetryExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("expected 3 attempts recorded, got %d", exhausted.Attempts)
	}
	if !errors.Is(err, last) {
		t.Fatalf("expected the last error to be wrapped, got %v", err)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := Default()
	policy.Sleep = func(time.Duration) {}
	err := policy.Execute(ctx, func(ctx context.Context) error {
		t.Fatal("op should not run on a cancelled context")
		return nil
	}, func(error) bool { return true })

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExecuteDelayCap(t *testing.T) {
	var delays []time.Duration
	policy := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    2 * time.Second,
		Sleep: func(d time.Duration) {
			delays = append(delays, d)
		},
	}

	_ = policy.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("down")
	}, func(error) bool { return true })

	for _, d := range delays {
		if d > 2*time.Second {
			t.Fatalf("delay %v exceeds the cap", d)
		}
	}
}

func TestRetryableStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
	}
	for _, tc := range cases {
		if got := RetryableStatus(tc.code); got != tc.want {
			t.Errorf("RetryableStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
