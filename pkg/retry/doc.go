// Package retry provides bounded retry with pluggable backoff for
// transient network failures.
//
// Features:
//   - Constant and exponential backoff strategies
//   - Jitter to avoid thundering herd problems
//   - Context support for cancellation, including mid-delay
//   - Configurable retry predicates
//
// Basic usage:
//
//	// Simple retry with defaults
//	err := retry.Do(ctx, func() error {
//		return client.Sync(ctx, snapshot)
//	}, nil)
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 5,
//		Backoff: &retry.ExponentialBackoff{
//			BaseDelay:  2 * time.Second,
//			MaxDelay:   30 * time.Second,
//			Multiplier: 2.0,
//		},
//		RetryIf: errors.RetryableError,
//		Logger:  logger.GetLogger(),
//	}
//	err := retry.Do(ctx, op, cfg)
//
// The last attempt's error is returned to the caller unchanged, so
// typed errors survive the retry loop and can be matched with
// errors.As.
package retry
