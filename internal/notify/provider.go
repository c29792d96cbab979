// Package notify holds the outbound provider clients: invite email,
// WhatsApp image messages, QR rendering and the image-host upload the
// WhatsApp flow depends on.
package notify

import (
	"errors"
	"fmt"
)

// ProviderError carries the HTTP-level outcome of a provider call. The
// raw body is kept for operator logs only and never shown to end users.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s request failed with status %d", e.Provider, e.StatusCode)
}

// ProviderStatus exposes the HTTP-like status for retry decisions and
// failure reports.
func (e *ProviderError) ProviderStatus() int {
	return e.StatusCode
}

// IsRetryable reports whether a failure is transient: rate limiting or a
// server-side error. Anything else is terminal.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode == 429 || pe.StatusCode >= 500
	}
	return false
}
