// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// RetryConfig configures retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialBackoff is the wait duration before the first retry.
	// Default: 1s, overridable via RETRY_DELAY (seconds).
	InitialBackoff time.Duration

	// MaxBackoff is the maximum wait duration between retries.
	// Default: 30s
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier for exponential backoff.
	// Default: 2.0
	BackoffFactor float64
}

// DefaultRetryConfig returns sensible defaults for transport retries.
func DefaultRetryConfig() RetryConfig {
	initial := 1 * time.Second
	if v := os.Getenv("RETRY_DELAY"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			initial = time.Duration(secs * float64(time.Second))
		}
	}
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: initial,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// Validate checks if the retry configuration is valid.
func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts %d", ErrInvalidRetryConfig, c.MaxAttempts)
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("%w: initial backoff %s", ErrInvalidRetryConfig, c.InitialBackoff)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("%w: max backoff %s below initial %s", ErrInvalidRetryConfig, c.MaxBackoff, c.InitialBackoff)
	}
	if c.BackoffFactor < 1.0 {
		return fmt.Errorf("%w: backoff factor %f", ErrInvalidRetryConfig, c.BackoffFactor)
	}
	return nil
}

// RetryableFunc is a function that can be retried. It should return nil
// on success, or an error to trigger another attempt.
type RetryableFunc func(ctx context.Context, attempt int) error

// Retry executes fn with exponential backoff until it succeeds, the
// context is cancelled, or the attempt budget is exhausted.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	config - Retry configuration.
//	fn - The function to execute and potentially retry.
//
// Outputs:
//
//	error - The last error if all attempts failed, nil on success.
func Retry(ctx context.Context, config RetryConfig, fn RetryableFunc) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		// Don't wait after the last attempt
		if attempt == config.MaxAttempts {
			break
		}

		slog.Debug("Transport call failed, backing off",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, config.BackoffFactor, config.MaxBackoff)
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, config.MaxAttempts, lastErr)
}

// nextBackoff calculates the next backoff value.
func nextBackoff(current time.Duration, factor float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next > max {
		return max
	}
	return next
}

// RetryingClient wraps an LLMClient with the capped-retry transport.
// Stage adapters issue exactly one logical call through this wrapper;
// transient provider failures are retried underneath it.
type RetryingClient struct {
	inner  LLMClient
	config RetryConfig
	logger *slog.Logger
}

var _ LLMClient = (*RetryingClient)(nil)

// NewRetryingClient wraps inner with retry behavior.
func NewRetryingClient(inner LLMClient, config RetryConfig, logger *slog.Logger) *RetryingClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingClient{inner: inner, config: config, logger: logger}
}

// Chat implements LLMClient with bounded retries.
func (r *RetryingClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	var response string
	err := Retry(ctx, r.config, func(ctx context.Context, attempt int) error {
		out, callErr := r.inner.Chat(ctx, messages, params)
		if callErr != nil {
			return callErr
		}
		response = out
		return nil
	})
	if err != nil {
		r.logger.Error("Chat call failed after retries",
			slog.Int("max_attempts", r.config.MaxAttempts),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	return response, nil
}
