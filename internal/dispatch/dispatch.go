// Package dispatch runs a per-guest notification operation across a
// guest-list snapshot. Fan-out is deliberately sequential: the shared
// constrained resource is the downstream messaging provider, and
// parallel sends trip its rate limits.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/guestlist-service/internal/domain"
)

// Failure records one guest's terminal send failure.
type Failure struct {
	GuestID string `json:"id"`
	Status  int    `json:"status"`
	Reason  string `json:"reason"`
}

// Result aggregates a dispatch run. Sent+Failed+Skipped always equals Total.
type Result struct {
	Sent     int       `json:"sent"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
	Total    int       `json:"total"`
	Failures []Failure `json:"failures,omitempty"`
}

// LastFailure returns the most recent terminal failure, or nil.
func (r Result) LastFailure() *Failure {
	if len(r.Failures) == 0 {
		return nil
	}
	return &r.Failures[len(r.Failures)-1]
}

// Policy controls retry behavior for a single guest's send.
type Policy struct {
	// MaxAttempts is the total number of tries per guest, including the
	// first one. Values below 1 are treated as 1.
	MaxAttempts int
	// Backoff is the fixed wait between attempts.
	Backoff time.Duration
	// Retryable decides whether a failed attempt is worth repeating.
	Retryable func(error) bool

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy mirrors the provider-facing behavior this service has
// always had: one retry after 600ms when the failure looks transient.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 2,
		Backoff:     600 * time.Millisecond,
		Retryable:   retryable,
	}
}

// WithSleep returns a copy of the policy using the given sleep function.
// Tests use this to observe backoff without waiting.
func (p Policy) WithSleep(sleep func(ctx context.Context, d time.Duration) error) Policy {
	p.sleep = sleep
	return p
}

func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options configures a dispatch run.
type Options struct {
	// Eligible filters guests before Send is ever invoked. Ineligible
	// guests count as skipped, not failed.
	Eligible func(domain.Guest) bool
	// Send performs the notification for one guest.
	Send func(ctx context.Context, guest domain.Guest) error
	// Policy governs per-guest retries.
	Policy Policy
}

// Run applies opts.Send to every eligible guest in order. One guest's
// failure never aborts the batch. A canceled context stops the loop
// between guests; guests already processed keep their outcome, so the
// caller may simply re-run the batch later.
func Run(ctx context.Context, guests []domain.Guest, opts Options) Result {
	result := Result{Total: len(guests)}

	for _, guest := range guests {
		if ctx.Err() != nil {
			result.Skipped = result.Total - result.Sent - result.Failed
			return result
		}
		if opts.Eligible != nil && !opts.Eligible(guest) {
			result.Skipped++
			continue
		}

		if err := sendWithRetry(ctx, guest, opts); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, Failure{
				GuestID: guest.ID,
				Status:  statusOf(err),
				Reason:  err.Error(),
			})
			continue
		}
		result.Sent++
	}

	return result
}

func sendWithRetry(ctx context.Context, guest domain.Guest, opts Options) error {
	attempts := opts.Policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = opts.Send(ctx, guest)
		if err == nil {
			return nil
		}
		if attempt == attempts || opts.Policy.Retryable == nil || !opts.Policy.Retryable(err) {
			return err
		}
		if waitErr := opts.Policy.wait(ctx, opts.Policy.Backoff); waitErr != nil {
			return err
		}
	}
	return err
}

// statusOf extracts an HTTP-like status from provider errors for the
// per-guest failure report.
func statusOf(err error) int {
	var carrier interface{ ProviderStatus() int }
	if errors.As(err, &carrier) {
		return carrier.ProviderStatus()
	}
	return 0
}
