package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"streamnet/pkg/config"
	errs "streamnet/pkg/errors"
	"streamnet/pkg/logger"
)

// recordingBackoff records every requested delay and returns zero so
// tests run instantly
type recordingBackoff struct {
	requested []int
	delay     time.Duration
}

func (rb *recordingBackoff) NextDelay(attempt int) time.Duration {
	rb.requested = append(rb.requested, attempt)
	return rb.delay
}

func quietConfig(t *testing.T, maxAttempts int, backoff BackoffStrategy) *Config {
	t.Helper()
	log, err := logger.New(&config.LoggingConfig{Level: "disabled"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     backoff,
		RetryIf:     errs.RetryableError,
		Logger:      log,
	}
}

func TestAllAttemptsFail(t *testing.T) {
	attempts := 0
	lastErr := errors.New("persistent error")
	op := func() error {
		attempts++
		return lastErr
	}

	backoff := &recordingBackoff{}
	err := Do(context.Background(), op, quietConfig(t, 3, backoff))

	if attempts != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", attempts)
	}
	// One sleep between 1->2 and 2->3, none after the 3rd
	if len(backoff.requested) != 2 {
		t.Errorf("Expected 2 sleeps, got %d", len(backoff.requested))
	}
	// The last error is propagated unchanged, not wrapped
	if err != lastErr {
		t.Errorf("Expected last error propagated unchanged, got %v", err)
	}
}

func TestSuccessOnSecondAttempt(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 2 {
			return errors.New("temporary error")
		}
		return nil
	}

	backoff := &recordingBackoff{}
	err := Do(context.Background(), op, quietConfig(t, 3, backoff))

	if err != nil {
		t.Errorf("Expected success, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected exactly 2 attempts, got %d", attempts)
	}
	if len(backoff.requested) != 1 {
		t.Errorf("Expected exactly 1 sleep, got %d", len(backoff.requested))
	}
}

func TestImmediateSuccess(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		return nil
	}

	backoff := &recordingBackoff{}
	if err := Do(context.Background(), op, quietConfig(t, 3, backoff)); err != nil {
		t.Errorf("Expected success, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
	if len(backoff.requested) != 0 {
		t.Errorf("Expected no sleeps, got %d", len(backoff.requested))
	}
}

func TestNonRetryableErrorStopsImmediately(t *testing.T) {
	attempts := 0
	decodingErr := errs.Decoding(errors.New("bad json"), 200)
	op := func() error {
		attempts++
		return decodingErr
	}

	err := Do(context.Background(), op, quietConfig(t, 3, &recordingBackoff{}))

	if attempts != 1 {
		t.Errorf("Expected 1 attempt for non-retryable error, got %d", attempts)
	}
	var apiErr *errs.Error
	if !errors.As(err, &apiErr) || apiErr.Type != errs.ErrorTypeDecoding {
		t.Errorf("Expected decoding error unchanged, got %v", err)
	}
}

func TestCancellationDuringDelay(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		return errors.New("failing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	backoff := &recordingBackoff{delay: 10 * time.Second}
	err := Do(ctx, op, quietConfig(t, 5, backoff))

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected cancellation during first delay, got %d attempts", attempts)
	}
}

func TestCancellationBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Do(ctx, func() error {
		attempts++
		return nil
	}, quietConfig(t, 3, &recordingBackoff{}))

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if attempts != 0 {
		t.Errorf("Expected no attempts after cancellation, got %d", attempts)
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	op := func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errs.HTTPError(500)
		}
		return "payload", nil
	}

	result, err := DoWithResult(context.Background(), op, quietConfig(t, 3, &recordingBackoff{}))
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if result != "payload" {
		t.Errorf("Expected result %q, got %q", "payload", result)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 2 * time.Second}
	for attempt := 1; attempt <= 5; attempt++ {
		if d := cb.NextDelay(attempt); d != 2*time.Second {
			t.Errorf("attempt %d: expected 2s, got %v", attempt, d)
		}
	}
	if cb.NextDelay(0) != 0 {
		t.Error("attempt 0 should have no delay")
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, test := range tests {
		if d := backoff.NextDelay(test.attempt); d != test.expected {
			t.Errorf("attempt %d: expected %v, got %v", test.attempt, test.expected, d)
		}
	}
}

func TestRetrierBuilders(t *testing.T) {
	base := NewRetrier(quietConfig(t, 3, &ConstantBackoff{Delay: time.Second}))
	modified := base.WithMaxAttempts(5).WithBackoff(&ConstantBackoff{})

	if base.config.MaxAttempts != 3 {
		t.Error("WithMaxAttempts must not mutate the original retrier")
	}
	if modified.config.MaxAttempts != 5 {
		t.Errorf("Expected 5 attempts, got %d", modified.config.MaxAttempts)
	}
}

func TestWaitCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if err := Wait(context.Background(), 0); err != nil {
		t.Errorf("Zero delay should return immediately, got %v", err)
	}
}
