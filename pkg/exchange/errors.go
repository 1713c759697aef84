package exchange

import (
	"errors"
	"fmt"
	"net"
)

// ErrNoCredentials is returned by order submission when no signing
// credentials are configured. It routes the executor into simulated
// execution rather than being treated as a failure.
var ErrNoCredentials = errors.New("exchange: no credentials configured")

// ValidationError reports bad configuration or input. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// PriceFetchError wraps a failure to fetch a quote. Always retryable.
type PriceFetchError struct {
	TokenID string
	Err     error
}

func (e *PriceFetchError) Error() string {
	return fmt.Sprintf("price fetch for token %s: %v", e.TokenID, e.Err)
}

func (e *PriceFetchError) Unwrap() error { return e.Err }

// IsRetriable implements the retryability check for price fetches.
func (e *PriceFetchError) IsRetriable() bool { return true }

// OrderError reports an order rejection. Retryable only when the server
// indicates a transient condition (5xx, rate limiting).
type OrderError struct {
	StatusCode int
	Code       string
	Message    string
	Retryable  bool
}

func (e *OrderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("order error %d: [%s] %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("order error %d: %s", e.StatusCode, e.Message)
}

// IsRetriable reports whether the rejection is worth retrying.
func (e *OrderError) IsRetriable() bool { return e.Retryable }

// retriable is implemented by errors that classify their own retryability.
type retriable interface {
	IsRetriable() bool
}

// IsRetryable classifies an error for the retry policy. Validation errors
// and missing credentials propagate immediately; self-classifying errors
// decide for themselves; network timeouts are retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoCredentials) {
		return false
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return false
	}
	var r retriable
	if errors.As(err, &r) {
		return r.IsRetriable()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
