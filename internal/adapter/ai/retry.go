// Package ai holds the pieces shared by both LLM provider adapters: the retry
// policy applied to outbound calls and the response normalizer that repairs
// malformed model output.
package ai

import (
	"context"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// Policy describes the retry schedule for one outbound provider call.
// Delays start at Initial and double per attempt, capped at MaxInterval; the
// operation runs at most MaxRetries+1 times. Only failures the operation
// reports as retryable (i.e. not wrapped in backoff.Permanent) are retried.
type Policy struct {
	MaxRetries  int
	Initial     time.Duration
	MaxInterval time.Duration
}

// BackOff materializes the policy as a context-aware backoff schedule.
func (p Policy) BackOff(ctx context.Context) backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.Initial
	expo.RandomizationFactor = 0
	expo.Multiplier = 2.0
	expo.MaxInterval = p.MaxInterval
	expo.MaxElapsedTime = 0
	expo.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(expo, uint64(p.MaxRetries)), ctx)
}

// Retry runs op under the policy. Operations mark non-retryable failures with
// backoff.Permanent; everything else is retried until the schedule runs out,
// at which point the last error is returned.
func Retry(ctx context.Context, p Policy, op backoff.Operation) error {
	return backoff.Retry(op, p.BackOff(ctx))
}

// Overloaded reports whether a provider response signals backpressure: an
// HTTP 429, or a body mentioning a 503/overloaded condition. These are the
// only failures worth retrying.
func Overloaded(status int, body string) bool {
	if status == 429 {
		return true
	}
	b := strings.ToLower(body)
	return strings.Contains(b, "503") || strings.Contains(b, "overloaded")
}
